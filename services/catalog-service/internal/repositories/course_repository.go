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

const courseColumns = `id, title, slug, description, tagline, status, visibility, level, languages, tags,
	category_id, featured, rating, enrollments_count, reviews_count, instructor_id, updated_by,
	curriculum_version, created_at, updated_at`

var courseListSpec = listSpec{
	table:         "courses",
	columns:       []string{courseColumns},
	searchColumns: []string{"title", "description", "tagline"},
	sortColumns: map[string]string{
		"title":             "title",
		"created_at":        "created_at",
		"updated_at":        "updated_at",
		"rating":            "rating",
		"enrollments_count": "enrollments_count",
		"featured":          "featured",
	},
	defaultSort:     models.Sort{Field: "created_at", Direction: models.SortDesc},
	defaultPageSize: 10,
}

type courseRepository struct {
	db *sql.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{
		db: db,
	}
}

func scanCourse(row scanner) (*models.Course, error) {
	var course models.Course
	err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Slug,
		&course.Description,
		&course.Tagline,
		&course.Status,
		&course.Visibility,
		&course.Level,
		&course.Languages,
		&course.Tags,
		&course.CategoryID,
		&course.Featured,
		&course.Rating,
		&course.EnrollmentsCount,
		&course.ReviewsCount,
		&course.InstructorID,
		&course.UpdatedBy,
		&course.CurriculumVersion,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) getOne(ctx context.Context, column string, value any) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE %s = $1 LIMIT 1`, courseColumns, column)

	course, err := scanCourse(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Course not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course by %s: %w", column, err)
	}
	return course, nil
}

// GetByID retrieves a course by its ID
func (r *courseRepository) GetByID(ctx context.Context, id int) (*models.Course, error) {
	return r.getOne(ctx, "id", id)
}

// GetBySlug retrieves a course by its slug
func (r *courseRepository) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	return r.getOne(ctx, "slug", slug)
}

// applyCourseFilter adds every present predicate of the filter to the builder
func applyCourseFilter(b *queryBuilder, f *models.CourseFilter) {
	if f == nil {
		return
	}
	if f.CourseID != nil {
		b.Eq("id", *f.CourseID)
	}
	if f.InstructorID != nil {
		b.Eq("instructor_id", *f.InstructorID)
	}
	if f.CategoryID != nil {
		b.Eq("category_id", *f.CategoryID)
	}
	if f.Status != nil {
		b.Eq("status", *f.Status)
	}
	if f.Visibility != nil {
		b.Eq("visibility", *f.Visibility)
	}
	if f.Level != nil {
		b.Eq("level", *f.Level)
	}
	if f.Featured != nil {
		b.Eq("featured", *f.Featured)
	}
	if len(f.Languages) > 0 {
		b.Overlaps("languages", f.Languages)
	}
	if len(f.Tags) > 0 {
		b.Overlaps("tags", f.Tags)
	}
	b.Search(f.Search)
	if f.MinRating != nil {
		b.Gte("rating", *f.MinRating)
	}
	if f.MaxRating != nil {
		b.Lte("rating", *f.MaxRating)
	}
	if f.MinEnrollments != nil {
		b.Gte("enrollments_count", *f.MinEnrollments)
	}
	if f.MaxEnrollments != nil {
		b.Lte("enrollments_count", *f.MaxEnrollments)
	}
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

// List retrieves one page of courses matching the filter and the total size of the filtered set
func (r *courseRepository) List(ctx context.Context, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) ([]models.Course, int, error) {
	b := newQueryBuilder(courseListSpec)
	applyCourseFilter(b, filter)

	countQuery, countArgs := b.CountQuery()
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query, args := b.SelectQuery(sort, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *course)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return courses, total, nil
}

// Featured retrieves featured published public courses, best rated first
func (r *courseRepository) Featured(ctx context.Context, limit int) ([]models.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM courses
		WHERE featured = TRUE AND status = $1 AND visibility = $2
		ORDER BY rating DESC, id DESC
		LIMIT $3
	`, courseColumns)

	rows, err := r.db.QueryContext(ctx, query, models.CourseStatusPublished, models.CourseVisibilityPublic, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query featured courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return courses, nil
}

// ExistsBySlug checks if a course other than excludeID uses the slug
//
// Pass 0 as excludeID to check against every course.
func (r *courseRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int) (bool, error) {
	query := "SELECT EXISTS(SELECT 1 FROM courses WHERE slug = $1 AND id <> $2)"
	var exists bool
	err := r.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}
	return exists, nil
}

// CheckOwnership checks if a course is taught by the instructor
func (r *courseRepository) CheckOwnership(ctx context.Context, id, instructorID int) (bool, error) {
	query := "SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1 AND instructor_id = $2)"
	var exists bool
	err := r.db.QueryRowContext(ctx, query, id, instructorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course ownership: %w", err)
	}
	return exists, nil
}

// Create creates a new course, filling its ID and timestamps
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (title, slug, description, tagline, status, visibility, level, languages, tags,
			category_id, featured, instructor_id, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, rating, enrollments_count, reviews_count, curriculum_version, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		course.Title,
		course.Slug,
		course.Description,
		course.Tagline,
		course.Status,
		course.Visibility,
		course.Level,
		textArray(course.Languages),
		textArray(course.Tags),
		course.CategoryID,
		course.Featured,
		course.InstructorID,
		course.UpdatedBy,
	).Scan(
		&course.ID,
		&course.Rating,
		&course.EnrollmentsCount,
		&course.ReviewsCount,
		&course.CurriculumVersion,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("Course with this slug already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// courseUpdateSet renders the assignments of a course patch, stamping updated_at and updated_by
func courseUpdateSet(req *models.UpdateCourseRequest, updatedBy int) *setBuilder {
	s := &setBuilder{}
	if req.Title != nil {
		s.Set("title", *req.Title)
	}
	if req.Slug != nil {
		s.Set("slug", *req.Slug)
	}
	if req.Description != nil {
		s.Set("description", *req.Description)
	}
	if req.Tagline != nil {
		s.Set("tagline", *req.Tagline)
	}
	if req.Status != nil {
		s.Set("status", *req.Status)
	}
	if req.Visibility != nil {
		s.Set("visibility", *req.Visibility)
	}
	if req.Level != nil {
		s.Set("level", *req.Level)
	}
	if req.Languages != nil {
		s.Set("languages", textArray(req.Languages))
	}
	if req.Tags != nil {
		s.Set("tags", textArray(req.Tags))
	}
	if req.CategoryID != nil {
		s.Set("category_id", *req.CategoryID)
	}
	if req.Featured != nil {
		s.Set("featured", *req.Featured)
	}
	if req.Rating != nil {
		s.Set("rating", *req.Rating)
	}
	if req.InstructorID != nil {
		s.Set("instructor_id", *req.InstructorID)
	}
	s.Set("updated_by", updatedBy)
	s.SetExpr("updated_at", "NOW()")
	return s
}

// Update applies a partial update to a course
func (r *courseRepository) Update(ctx context.Context, id int, req *models.UpdateCourseRequest, updatedBy int) error {
	if req.IsEmpty() {
		return apperr.Validation("no fields to update")
	}

	s := courseUpdateSet(req, updatedBy)
	query := fmt.Sprintf(`
		UPDATE courses
		SET %s
		WHERE id = %s
	`, strings.Join(s.setParts, ", "), s.Bind(id))

	result, err := r.db.ExecContext(ctx, query, s.args...)
	if isUniqueViolation(err) {
		return apperr.Conflict("Course with this slug already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperr.NotFound("Course not found")
	}

	return nil
}

// BulkUpdate applies one patch to every listed course and returns the IDs that were updated
func (r *courseRepository) BulkUpdate(ctx context.Context, ids []int, req *models.UpdateCourseRequest, updatedBy int) ([]int, error) {
	if req.IsEmpty() {
		return nil, apperr.Validation("no fields to update")
	}

	s := courseUpdateSet(req, updatedBy)
	query := fmt.Sprintf(`
		UPDATE courses
		SET %s
		WHERE id = ANY(%s)
		RETURNING id
	`, strings.Join(s.setParts, ", "), s.Bind(pq.Array(ids)))

	rows, err := r.db.QueryContext(ctx, query, s.args...)
	if isUniqueViolation(err) {
		return nil, apperr.Conflict("Course with this slug already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bulk update courses: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// deleteCourses removes the courses together with their chapters and lessons, children first
func deleteCourses(ctx context.Context, tx *sql.Tx, ids []int) ([]int, error) {
	idArray := pq.Array(ids)
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM lessons
		WHERE chapter_id IN (SELECT id FROM chapters WHERE course_id = ANY($1))
	`, idArray); err != nil {
		return nil, fmt.Errorf("failed to delete course lessons: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chapters WHERE course_id = ANY($1)", idArray); err != nil {
		return nil, fmt.Errorf("failed to delete course chapters: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "DELETE FROM courses WHERE id = ANY($1) RETURNING id", idArray)
	if err != nil {
		return nil, fmt.Errorf("failed to delete courses: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// Delete deletes a course together with its chapters and lessons
func (r *courseRepository) Delete(ctx context.Context, id int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		deleted, err := deleteCourses(ctx, tx, []int{id})
		if err != nil {
			return err
		}
		if len(deleted) == 0 {
			return apperr.NotFound("Course not found")
		}
		return nil
	})
}

// BulkDelete deletes the listed courses together with their chapters and lessons
//
// Returns the IDs of the courses that existed and were deleted.
func (r *courseRepository) BulkDelete(ctx context.Context, ids []int) ([]int, error) {
	var deleted []int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		deleted, err = deleteCourses(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// BumpCurriculumVersion increments the curriculum version of a course
//
// When expected is not nil the increment only happens if the stored version still equals it,
// otherwise a Conflict error is returned. Returns the new version.
func (r *courseRepository) BumpCurriculumVersion(ctx context.Context, id int, expected *int) (int, error) {
	query := `
		UPDATE courses
		SET curriculum_version = curriculum_version + 1
		WHERE id = $1 AND ($2::int IS NULL OR curriculum_version = $2)
		RETURNING curriculum_version
	`

	var version int
	err := r.db.QueryRowContext(ctx, query, id, expected).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if expected != nil {
			return 0, apperr.Conflict("curriculum was modified by another request")
		}
		return 0, apperr.NotFound("Course not found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bump curriculum version: %w", err)
	}

	return version, nil
}

// Stats aggregates catalog wide course statistics
func (r *courseRepository) Stats(ctx context.Context) (*models.CourseStats, error) {
	stats := &models.CourseStats{ByStatus: map[string]int{}}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE featured),
			COALESCE(AVG(rating), 0),
			COALESCE(SUM(enrollments_count), 0)
		FROM courses
	`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Featured,
		&stats.AverageRating,
		&stats.TotalEnrollments,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get course stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM courses GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to get course status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return stats, nil
}

// ListWithOrderGaps returns the IDs of courses whose chapters or lessons are not densely ordered from zero
func (r *courseRepository) ListWithOrderGaps(ctx context.Context) ([]int, error) {
	query := `
		SELECT course_id FROM (
			SELECT course_id, COUNT(*) AS n, MIN(order_index) AS lo, MAX(order_index) AS hi, COUNT(DISTINCT order_index) AS d
			FROM chapters
			GROUP BY course_id
		) c
		WHERE c.lo <> 0 OR c.hi <> c.n - 1 OR c.d <> c.n
		UNION
		SELECT ch.course_id FROM chapters ch
		JOIN (
			SELECT chapter_id, COUNT(*) AS n, MIN(order_index) AS lo, MAX(order_index) AS hi, COUNT(DISTINCT order_index) AS d
			FROM lessons
			GROUP BY chapter_id
		) l ON l.chapter_id = ch.id
		WHERE l.lo <> 0 OR l.hi <> l.n - 1 OR l.d <> l.n
		ORDER BY 1
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find courses with order gaps: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// scanIDs reads a single integer column from every row
func scanIDs(rows *sql.Rows) ([]int, error) {
	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}
