package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/lib/pq"
)

const lessonColumns = `id, chapter_id, title, content_type, content_url, content_body, order_index, is_preview,
	duration, created_at, updated_at`

var lessonListSpec = listSpec{
	table:         "lessons",
	columns:       []string{lessonColumns},
	searchColumns: []string{"title", "content_body"},
	sortColumns: map[string]string{
		"title":       "title",
		"order_index": "order_index",
		"duration":    "duration",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	},
	defaultSort:     models.Sort{Field: "order_index", Direction: models.SortAsc},
	defaultPageSize: 50,
}

// lessonInsertBatch caps the rows of one insert statement; Postgres allows at most 65535 bind parameters
const lessonInsertBatch = 1000

type lessonRepository struct {
	db        *sql.DB
	batchSize int
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *sql.DB) *lessonRepository {
	return &lessonRepository{
		db:        db,
		batchSize: lessonInsertBatch,
	}
}

func scanLesson(row scanner) (*models.Lesson, error) {
	var lesson models.Lesson
	err := row.Scan(
		&lesson.ID,
		&lesson.ChapterID,
		&lesson.Title,
		&lesson.ContentType,
		&lesson.ContentURL,
		&lesson.ContentBody,
		&lesson.OrderIndex,
		&lesson.IsPreview,
		&lesson.Duration,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func scanLessons(rows *sql.Rows) ([]models.Lesson, error) {
	lessons := []models.Lesson{}
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, *lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return lessons, nil
}

// GetByID retrieves a lesson by its ID
func (r *lessonRepository) GetByID(ctx context.Context, id int) (*models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE id = $1 LIMIT 1", lessonColumns)

	lesson, err := scanLesson(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Lesson not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson by id: %w", err)
	}

	return lesson, nil
}

// GetByChapterIDs retrieves the lessons of every listed chapter in one query
func (r *lessonRepository) GetByChapterIDs(ctx context.Context, chapterIDs []int) ([]models.Lesson, error) {
	if len(chapterIDs) == 0 {
		return []models.Lesson{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM lessons WHERE chapter_id = ANY($1)", lessonColumns)

	rows, err := r.db.QueryContext(ctx, query, pq.Array(chapterIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

func applyLessonFilter(b *queryBuilder, f *models.LessonFilter) {
	if f == nil {
		return
	}
	if f.ChapterID != nil {
		b.Eq("chapter_id", *f.ChapterID)
	}
	if f.ContentType != nil {
		b.Eq("content_type", *f.ContentType)
	}
	if f.IsPreview != nil {
		b.Eq("is_preview", *f.IsPreview)
	}
	b.Search(f.Search)
}

// List retrieves one page of lessons matching the filter and the total size of the filtered set
func (r *lessonRepository) List(ctx context.Context, filter *models.LessonFilter, sort models.Sort, page models.PageRequest) ([]models.Lesson, int, error) {
	b := newQueryBuilder(lessonListSpec)
	applyLessonFilter(b, filter)

	countQuery, countArgs := b.CountQuery()
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count lessons: %w", err)
	}

	query, args := b.SelectQuery(sort, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	lessons, err := scanLessons(rows)
	if err != nil {
		return nil, 0, err
	}

	return lessons, total, nil
}

// CountByChapter returns the number of lessons in a chapter
func (r *lessonRepository) CountByChapter(ctx context.Context, chapterID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lessons WHERE chapter_id = $1", chapterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chapter lessons: %w", err)
	}
	return count, nil
}

// Create creates a new lesson, filling its ID and timestamps
func (r *lessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	query := `
		INSERT INTO lessons (chapter_id, title, content_type, content_url, content_body, order_index, is_preview, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		lesson.ChapterID,
		lesson.Title,
		lesson.ContentType,
		lesson.ContentURL,
		lesson.ContentBody,
		lesson.OrderIndex,
		lesson.IsPreview,
		lesson.Duration,
	).Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	return nil
}

// CreateBatch inserts all lessons with multi-row statements
//
// Lessons beyond one statement's worth are inserted in chunks within a single transaction.
// Returns the number of inserted rows.
func (r *lessonRepository) CreateBatch(ctx context.Context, lessons []models.Lesson) (int, error) {
	if len(lessons) == 0 {
		return 0, nil
	}
	if len(lessons) <= r.batchSize {
		return insertLessons(ctx, r.db, lessons)
	}

	inserted := 0
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for start := 0; start < len(lessons); start += r.batchSize {
			n, err := insertLessons(ctx, tx, lessons[start:min(start+r.batchSize, len(lessons))])
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func insertLessons(ctx context.Context, db execer, lessons []models.Lesson) (int, error) {
	const fieldsPerRow = 8
	placeholders := make([]string, 0, len(lessons))
	args := make([]any, 0, len(lessons)*fieldsPerRow)
	for i, lesson := range lessons {
		base := i * fieldsPerRow
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args,
			lesson.ChapterID,
			lesson.Title,
			lesson.ContentType,
			lesson.ContentURL,
			lesson.ContentBody,
			lesson.OrderIndex,
			lesson.IsPreview,
			lesson.Duration,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO lessons (chapter_id, title, content_type, content_url, content_body, order_index, is_preview, duration)
		VALUES %s
	`, strings.Join(placeholders, ", "))

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lessons: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// Update applies a partial update to a lesson
func (r *lessonRepository) Update(ctx context.Context, id int, req *models.UpdateLessonRequest) error {
	if req.IsEmpty() {
		return apperr.Validation("no fields to update")
	}

	s := &setBuilder{}
	if req.Title != nil {
		s.Set("title", *req.Title)
	}
	if req.ContentType != nil {
		s.Set("content_type", *req.ContentType)
	}
	if req.ContentURL != nil {
		s.Set("content_url", *req.ContentURL)
	}
	if req.ContentBody != nil {
		s.Set("content_body", *req.ContentBody)
	}
	if req.OrderIndex != nil {
		s.Set("order_index", *req.OrderIndex)
	}
	if req.IsPreview != nil {
		s.Set("is_preview", *req.IsPreview)
	}
	if req.Duration != nil {
		s.Set("duration", *req.Duration)
	}
	s.SetExpr("updated_at", "NOW()")

	query := fmt.Sprintf(`
		UPDATE lessons
		SET %s
		WHERE id = %s
	`, strings.Join(s.setParts, ", "), s.Bind(id))

	result, err := r.db.ExecContext(ctx, query, s.args...)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperr.NotFound("Lesson not found")
	}

	return nil
}

// Delete deletes a lesson
func (r *lessonRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperr.NotFound("Lesson not found")
	}

	return nil
}

// UpdateOrderIndex sets the order index of a lesson, scoped to its chapter
//
// Returns false when no lesson with the ID belongs to the chapter.
func (r *lessonRepository) UpdateOrderIndex(ctx context.Context, chapterID, id, orderIndex int) (bool, error) {
	query := `
		UPDATE lessons
		SET order_index = $1, updated_at = NOW()
		WHERE id = $2 AND chapter_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, orderIndex, id, chapterID)
	if err != nil {
		return false, fmt.Errorf("failed to update lesson order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// CompactOrder rewrites the lesson order indices of every chapter in a course to 0..n-1
//
// Returns the number of lessons whose index changed.
func (r *lessonRepository) CompactOrder(ctx context.Context, courseID int) (int, error) {
	query := `
		UPDATE lessons l
		SET order_index = ranked.position, updated_at = NOW()
		FROM (
			SELECT ls.id, ROW_NUMBER() OVER (PARTITION BY ls.chapter_id ORDER BY ls.order_index, ls.id) - 1 AS position
			FROM lessons ls
			JOIN chapters ch ON ch.id = ls.chapter_id
			WHERE ch.course_id = $1
		) ranked
		WHERE l.id = ranked.id AND l.order_index <> ranked.position
	`

	result, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to compact lesson order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
