package services

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	courseStatuses     = []models.CourseStatus{models.CourseStatusDraft, models.CourseStatusPublished, models.CourseStatusArchived}
	courseVisibilities = []models.CourseVisibility{models.CourseVisibilityPublic, models.CourseVisibilityPrivate, models.CourseVisibilityUnlisted}
	courseLevels       = []models.CourseLevel{models.CourseLevelBeginner, models.CourseLevelIntermediate, models.CourseLevelAdvanced, models.CourseLevelAllLevels}
)

const slugTaken = "Course with this slug already exists"

type courseService struct {
	courseRepo CourseRepository
	gate       courseGate
	tree       *hierarchyReader
	invalidate invalidator
	logger     *zap.Logger
}

// NewCourseService creates a new course service
func NewCourseService(courseRepo CourseRepository, chapterRepo ChapterRepository, lessonRepo LessonRepository, sink Invalidator, logger *zap.Logger) *courseService {
	return &courseService{
		courseRepo: courseRepo,
		gate:       courseGate{courses: courseRepo, logger: logger},
		tree:       &hierarchyReader{courses: courseRepo, chapters: chapterRepo, lessons: lessonRepo, logger: logger},
		invalidate: invalidator{sink: sink, logger: logger},
		logger:     logger,
	}
}

// List retrieves a page of courses for the dashboard
//
// Instructors only see the courses they teach.
func (s *courseService) List(ctx context.Context, p principal.Principal, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Course], error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.CourseFilter{}
	}
	if !p.IsAdmin() {
		filter.InstructorID = &p.UserID
	}

	page = page.Normalize(courseDefaultPageSize)
	courses, total, err := s.courseRepo.List(ctx, filter, sort, page)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch courses", err)
	}
	return models.NewPage(courses, total, page), nil
}

// Get retrieves a course for the dashboard
func (s *courseService) Get(ctx context.Context, p principal.Principal, id int) (*models.Course, error) {
	return s.gate.load(ctx, p, id)
}

// GetWithChapters retrieves a course with its ordered chapters, and their lessons when includeLessons is set
func (s *courseService) GetWithChapters(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.CourseWithChapters, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	tree, err := s.tree.courseTree(ctx, id, includeLessons)
	if err != nil {
		return nil, err
	}
	if err := s.gate.authorizeLoaded(p, &tree.Course); err != nil {
		return nil, err
	}
	return tree, nil
}

// Create creates a new course
//
// Instructors always create courses they teach, admins may name any instructor.
func (s *courseService) Create(ctx context.Context, p principal.Principal, req *models.CreateCourseRequest) (*models.Course, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	if !p.IsAdmin() || req.InstructorID == 0 {
		req.InstructorID = p.UserID
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Slug = strings.TrimSpace(req.Slug)

	if err := s.validateCreateCourse(ctx, req); err != nil {
		return nil, err
	}

	updatedBy := p.UserID
	course := &models.Course{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		Tagline:      req.Tagline,
		Status:       req.Status,
		Visibility:   req.Visibility,
		Level:        req.Level,
		Languages:    pq.StringArray(req.Languages),
		Tags:         pq.StringArray(req.Tags),
		CategoryID:   req.CategoryID,
		Featured:     req.Featured,
		InstructorID: req.InstructorID,
		UpdatedBy:    &updatedBy,
	}
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	if course.Visibility == "" {
		course.Visibility = models.CourseVisibilityPrivate
	}
	if course.Level == "" {
		course.Level = models.CourseLevelBeginner
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to create course", err, zap.String("slug", course.Slug))
	}

	s.invalidate.courses(ctx, true, course.ID)
	return course, nil
}

func (s *courseService) validateCreateCourse(ctx context.Context, req *models.CreateCourseRequest) error {
	if req.Title == "" || req.Slug == "" {
		return apperr.Validation("title and slug are required")
	}
	if req.InstructorID <= 0 {
		return apperr.Validation("instructor is required")
	}

	errorChan := make(chan error, 2)

	// Validate format and enums
	go func() {
		errorChan <- validateCourseFields(&req.Slug, nilIfEmpty(req.Status), nilIfEmpty(req.Visibility), nilIfEmpty(req.Level), nil)
	}()
	// Check slug uniqueness
	go func() {
		exists, err := s.courseRepo.ExistsBySlug(ctx, req.Slug, 0)
		if err != nil {
			errorChan <- storeError(s.logger, apperr.KindQueryFailed, "Failed to create course", err, zap.String("slug", req.Slug))
			return
		}
		if exists {
			errorChan <- apperr.Conflict(slugTaken)
			return
		}
		errorChan <- nil
	}()

	var firstErr error
	for range 2 {
		if err := <-errorChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Update applies a partial update to a course and returns the updated course
//
// Instructors cannot reassign the instructor of a course.
func (s *courseService) Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.gate.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		req.InstructorID = nil
	}

	if err := s.validateUpdateCourse(ctx, course, req); err != nil {
		return nil, err
	}

	if err := s.courseRepo.Update(ctx, id, req, p.UserID); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to update course", err, zap.Int("course_id", id))
	}
	s.invalidate.courses(ctx, true, id)

	updated, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch course", err, zap.Int("course_id", id))
	}
	return updated, nil
}

func (s *courseService) validateUpdateCourse(ctx context.Context, course *models.Course, req *models.UpdateCourseRequest) error {
	if req.IsEmpty() {
		return apperr.Validation("at least one field must be provided")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return apperr.Validation("title cannot be empty")
	}
	if req.InstructorID != nil && *req.InstructorID <= 0 {
		return apperr.Validation("invalid instructor")
	}

	errorChan := make(chan error, 2)

	go func() {
		errorChan <- validateCourseFields(req.Slug, req.Status, req.Visibility, req.Level, req.Rating)
	}()
	// Check slug uniqueness against other courses if it changes
	go func() {
		if req.Slug != nil && *req.Slug != course.Slug {
			exists, err := s.courseRepo.ExistsBySlug(ctx, *req.Slug, course.ID)
			if err != nil {
				errorChan <- storeError(s.logger, apperr.KindQueryFailed, "Failed to update course", err, zap.Int("course_id", course.ID))
				return
			}
			if exists {
				errorChan <- apperr.Conflict(slugTaken)
				return
			}
		}
		errorChan <- nil
	}()

	var firstErr error
	for range 2 {
		if err := <-errorChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Delete deletes a course with all of its chapters and lessons
func (s *courseService) Delete(ctx context.Context, p principal.Principal, id int) error {
	if _, err := s.gate.load(ctx, p, id); err != nil {
		return err
	}
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return storeError(s.logger, apperr.KindWriteFailed, "Failed to delete course", err, zap.Int("course_id", id))
	}
	s.invalidate.courses(ctx, true, id)
	return nil
}

// Stats aggregates catalog statistics for administrators
func (s *courseService) Stats(ctx context.Context, p principal.Principal) (*models.CourseStats, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return nil, err
	}
	stats, err := s.courseRepo.Stats(ctx)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch course stats", err)
	}
	return stats, nil
}

const courseDefaultPageSize = 10

// validateCourseFields checks the optional fields shared by create, update and bulk update
func validateCourseFields(slug *string, status *models.CourseStatus, visibility *models.CourseVisibility, level *models.CourseLevel, rating *float64) error {
	if slug != nil && !slugPattern.MatchString(*slug) {
		return apperr.Validation("slug must contain only lowercase letters, digits and hyphens")
	}
	if status != nil && !slices.Contains(courseStatuses, *status) {
		return apperr.Validation("invalid status")
	}
	if visibility != nil && !slices.Contains(courseVisibilities, *visibility) {
		return apperr.Validation("invalid visibility")
	}
	if level != nil && !slices.Contains(courseLevels, *level) {
		return apperr.Validation("invalid level")
	}
	if rating != nil && (*rating < 0 || *rating > 5) {
		return apperr.Validation("rating must be between 0 and 5")
	}
	return nil
}

// nilIfEmpty returns nil for the zero value of a string enum
func nilIfEmpty[T ~string](v T) *T {
	if v == "" {
		return nil
	}
	return &v
}
