package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/lib/pq"
)

const chapterColumns = "id, course_id, title, description, order_index, is_free, created_at, updated_at"

var chapterListSpec = listSpec{
	table:         "chapters",
	columns:       []string{chapterColumns},
	searchColumns: []string{"title", "description"},
	sortColumns: map[string]string{
		"title":       "title",
		"order_index": "order_index",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	},
	defaultSort:     models.Sort{Field: "order_index", Direction: models.SortAsc},
	defaultPageSize: 50,
}

type chapterRepository struct {
	db *sql.DB
}

// NewChapterRepository creates a new chapter repository
func NewChapterRepository(db *sql.DB) *chapterRepository {
	return &chapterRepository{
		db: db,
	}
}

func scanChapter(row scanner) (*models.Chapter, error) {
	var chapter models.Chapter
	err := row.Scan(
		&chapter.ID,
		&chapter.CourseID,
		&chapter.Title,
		&chapter.Description,
		&chapter.OrderIndex,
		&chapter.IsFree,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func scanChapters(rows *sql.Rows) ([]models.Chapter, error) {
	chapters := []models.Chapter{}
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, *chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return chapters, nil
}

// GetByID retrieves a chapter by its ID
func (r *chapterRepository) GetByID(ctx context.Context, id int) (*models.Chapter, error) {
	query := fmt.Sprintf("SELECT %s FROM chapters WHERE id = $1 LIMIT 1", chapterColumns)

	chapter, err := scanChapter(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Chapter not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter by id: %w", err)
	}

	return chapter, nil
}

// GetByCourseID retrieves every chapter of a course
func (r *chapterRepository) GetByCourseID(ctx context.Context, courseID int) ([]models.Chapter, error) {
	query := fmt.Sprintf("SELECT %s FROM chapters WHERE course_id = $1", chapterColumns)

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	return scanChapters(rows)
}

func applyChapterFilter(b *queryBuilder, f *models.ChapterFilter) {
	if f == nil {
		return
	}
	if f.ChapterID != nil {
		b.Eq("id", *f.ChapterID)
	}
	if f.CourseID != nil {
		b.Eq("course_id", *f.CourseID)
	}
	if f.IsFree != nil {
		b.Eq("is_free", *f.IsFree)
	}
	b.Search(f.Search)
	if f.CreatedAfter != nil {
		b.Gte("created_at", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		b.Lte("created_at", *f.CreatedBefore)
	}
	if f.UpdatedAfter != nil {
		b.Gte("updated_at", *f.UpdatedAfter)
	}
	if f.UpdatedBefore != nil {
		b.Lte("updated_at", *f.UpdatedBefore)
	}
}

// List retrieves one page of chapters matching the filter and the total size of the filtered set
func (r *chapterRepository) List(ctx context.Context, filter *models.ChapterFilter, sort models.Sort, page models.PageRequest) ([]models.Chapter, int, error) {
	b := newQueryBuilder(chapterListSpec)
	applyChapterFilter(b, filter)

	countQuery, countArgs := b.CountQuery()
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count chapters: %w", err)
	}

	query, args := b.SelectQuery(sort, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	chapters, err := scanChapters(rows)
	if err != nil {
		return nil, 0, err
	}

	return chapters, total, nil
}

// MaxOrderIndex returns the highest order index among the chapters of a course, or -1 when it has none
func (r *chapterRepository) MaxOrderIndex(ctx context.Context, courseID int) (int, error) {
	query := "SELECT COALESCE(MAX(order_index), -1) FROM chapters WHERE course_id = $1"
	var maxIndex int
	if err := r.db.QueryRowContext(ctx, query, courseID).Scan(&maxIndex); err != nil {
		return 0, fmt.Errorf("failed to get max chapter order: %w", err)
	}
	return maxIndex, nil
}

// Create creates a new chapter, filling its ID and timestamps
func (r *chapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	query := `
		INSERT INTO chapters (course_id, title, description, order_index, is_free)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		chapter.CourseID,
		chapter.Title,
		chapter.Description,
		chapter.OrderIndex,
		chapter.IsFree,
	).Scan(&chapter.ID, &chapter.CreatedAt, &chapter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chapter: %w", err)
	}

	return nil
}

func chapterUpdateSet(req *models.UpdateChapterRequest) *setBuilder {
	s := &setBuilder{}
	if req.Title != nil {
		s.Set("title", *req.Title)
	}
	if req.Description != nil {
		s.Set("description", *req.Description)
	}
	if req.OrderIndex != nil {
		s.Set("order_index", *req.OrderIndex)
	}
	if req.IsFree != nil {
		s.Set("is_free", *req.IsFree)
	}
	s.SetExpr("updated_at", "NOW()")
	return s
}

// Update applies a partial update to a chapter
func (r *chapterRepository) Update(ctx context.Context, id int, req *models.UpdateChapterRequest) error {
	if req.IsEmpty() {
		return apperr.Validation("no fields to update")
	}

	s := chapterUpdateSet(req)
	query := fmt.Sprintf(`
		UPDATE chapters
		SET %s
		WHERE id = %s
	`, strings.Join(s.setParts, ", "), s.Bind(id))

	result, err := r.db.ExecContext(ctx, query, s.args...)
	if err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperr.NotFound("Chapter not found")
	}

	return nil
}

func scanChapterRefs(rows *sql.Rows) ([]models.ChapterRef, error) {
	refs := []models.ChapterRef{}
	for rows.Next() {
		var ref models.ChapterRef
		if err := rows.Scan(&ref.ID, &ref.CourseID); err != nil {
			return nil, fmt.Errorf("failed to scan chapter ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return refs, nil
}

// RefsByIDs resolves the course of every listed chapter that exists
func (r *chapterRepository) RefsByIDs(ctx context.Context, ids []int) ([]models.ChapterRef, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, course_id FROM chapters WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query chapter refs: %w", err)
	}
	defer rows.Close()

	return scanChapterRefs(rows)
}

// BulkUpdate applies one patch to every listed chapter and returns the updated chapters with their courses
func (r *chapterRepository) BulkUpdate(ctx context.Context, ids []int, req *models.UpdateChapterRequest) ([]models.ChapterRef, error) {
	if req.IsEmpty() {
		return nil, apperr.Validation("no fields to update")
	}

	s := chapterUpdateSet(req)
	query := fmt.Sprintf(`
		UPDATE chapters
		SET %s
		WHERE id = ANY(%s)
		RETURNING id, course_id
	`, strings.Join(s.setParts, ", "), s.Bind(pq.Array(ids)))

	rows, err := r.db.QueryContext(ctx, query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk update chapters: %w", err)
	}
	defer rows.Close()

	return scanChapterRefs(rows)
}

// deleteChapters removes the chapters and their lessons, lessons first
func deleteChapters(ctx context.Context, tx *sql.Tx, ids []int) ([]models.ChapterRef, error) {
	idArray := pq.Array(ids)
	if _, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE chapter_id = ANY($1)", idArray); err != nil {
		return nil, fmt.Errorf("failed to delete chapter lessons: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "DELETE FROM chapters WHERE id = ANY($1) RETURNING id, course_id", idArray)
	if err != nil {
		return nil, fmt.Errorf("failed to delete chapters: %w", err)
	}
	defer rows.Close()

	return scanChapterRefs(rows)
}

// Delete deletes a chapter together with its lessons and returns the course it belonged to
func (r *chapterRepository) Delete(ctx context.Context, id int) (int, error) {
	var courseID int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		refs, err := deleteChapters(ctx, tx, []int{id})
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			return apperr.NotFound("Chapter not found")
		}
		courseID = refs[0].CourseID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return courseID, nil
}

// BulkDelete deletes the listed chapters together with their lessons
//
// Returns the deleted chapters with their courses.
func (r *chapterRepository) BulkDelete(ctx context.Context, ids []int) ([]models.ChapterRef, error) {
	var refs []models.ChapterRef
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		refs, err = deleteChapters(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// UpdateOrderIndex sets the order index of a chapter, scoped to its course
//
// Returns false when no chapter with the ID belongs to the course.
func (r *chapterRepository) UpdateOrderIndex(ctx context.Context, courseID, id, orderIndex int) (bool, error) {
	query := `
		UPDATE chapters
		SET order_index = $1, updated_at = NOW()
		WHERE id = $2 AND course_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, orderIndex, id, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to update chapter order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// CompactOrder rewrites the chapter order indices of a course to 0..n-1, keeping their relative order
//
// Returns the number of chapters whose index changed.
func (r *chapterRepository) CompactOrder(ctx context.Context, courseID int) (int, error) {
	query := `
		UPDATE chapters c
		SET order_index = ranked.position, updated_at = NOW()
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY order_index, id) - 1 AS position
			FROM chapters
			WHERE course_id = $1
		) ranked
		WHERE c.id = ranked.id AND c.order_index <> ranked.position
	`

	result, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to compact chapter order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// Stats aggregates chapter statistics of a course
func (r *chapterRepository) Stats(ctx context.Context, courseID int) (*models.ChapterStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE c.is_free),
			COALESCE(SUM(lc.lessons), 0)
		FROM chapters c
		LEFT JOIN (
			SELECT chapter_id, COUNT(*) AS lessons
			FROM lessons
			GROUP BY chapter_id
		) lc ON lc.chapter_id = c.id
		WHERE c.course_id = $1
	`

	var stats models.ChapterStats
	err := r.db.QueryRowContext(ctx, query, courseID).Scan(
		&stats.TotalChapters,
		&stats.FreeChapters,
		&stats.TotalLessons,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter stats: %w", err)
	}
	if stats.TotalChapters > 0 {
		stats.AverageLessonsPerChapter = math.Round(float64(stats.TotalLessons)/float64(stats.TotalChapters)*100) / 100
	}

	return &stats, nil
}
