package services

import (
	"context"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

const lessonDefaultPageSize = 50

type lessonService struct {
	chapterRepo ChapterRepository
	lessonRepo  LessonRepository
	gate        courseGate
	invalidate  invalidator
	logger      *zap.Logger
}

// NewLessonService creates a new lesson service
func NewLessonService(courseRepo CourseRepository, chapterRepo ChapterRepository, lessonRepo LessonRepository, sink Invalidator, logger *zap.Logger) *lessonService {
	return &lessonService{
		chapterRepo: chapterRepo,
		lessonRepo:  lessonRepo,
		gate:        courseGate{courses: courseRepo, logger: logger},
		invalidate:  invalidator{sink: sink, logger: logger},
		logger:      logger,
	}
}

// chapterCourse resolves the course of a chapter and checks access to it
func (s *lessonService) chapterCourse(ctx context.Context, p principal.Principal, chapterID int) (int, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return 0, err
	}
	chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapter", err, zap.Int("chapter_id", chapterID))
	}
	if err := s.gate.authorize(ctx, p, chapter.CourseID); err != nil {
		return 0, err
	}
	return chapter.CourseID, nil
}

// load reads a lesson, checks access to it and returns it with the ID of its course
func (s *lessonService) load(ctx context.Context, p principal.Principal, id int) (*models.Lesson, int, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, 0, err
	}
	lesson, err := s.lessonRepo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch lesson", err, zap.Int("lesson_id", id))
	}
	courseID, err := s.chapterCourse(ctx, p, lesson.ChapterID)
	if err != nil {
		return nil, 0, err
	}
	return lesson, courseID, nil
}

// List retrieves a page of lessons
//
// Instructors must scope the listing to a chapter of a course they teach.
func (s *lessonService) List(ctx context.Context, p principal.Principal, filter *models.LessonFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Lesson], error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.LessonFilter{}
	}
	if filter.ContentType != nil && !filter.ContentType.IsValid() {
		return nil, apperr.Validation("invalid contentType")
	}
	if !p.IsAdmin() {
		if filter.ChapterID == nil {
			return nil, apperr.Validation("chapterId is required")
		}
		if _, err := s.chapterCourse(ctx, p, *filter.ChapterID); err != nil {
			return nil, err
		}
	}

	page = page.Normalize(lessonDefaultPageSize)
	lessons, total, err := s.lessonRepo.List(ctx, filter, sort, page)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch lessons", err)
	}
	return models.NewPage(lessons, total, page), nil
}

// Get retrieves a lesson
func (s *lessonService) Get(ctx context.Context, p principal.Principal, id int) (*models.Lesson, error) {
	lesson, _, err := s.load(ctx, p, id)
	return lesson, err
}

// Create creates a new lesson at the requested order index
func (s *lessonService) Create(ctx context.Context, p principal.Principal, req *models.CreateLessonRequest) (*models.Lesson, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if req.ChapterID <= 0 {
		return nil, apperr.Validation("chapterId is required")
	}
	if !req.ContentType.IsValid() {
		return nil, apperr.Validation("invalid contentType")
	}
	if req.OrderIndex == nil {
		return nil, apperr.Validation("orderIndex is required")
	}
	if *req.OrderIndex < 0 {
		return nil, apperr.Validation("orderIndex must be non-negative")
	}
	if req.Duration < 0 {
		return nil, apperr.Validation("duration must be non-negative")
	}

	courseID, err := s.chapterCourse(ctx, p, req.ChapterID)
	if err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		ChapterID:   req.ChapterID,
		Title:       req.Title,
		ContentType: req.ContentType,
		ContentURL:  req.ContentURL,
		ContentBody: req.ContentBody,
		OrderIndex:  *req.OrderIndex,
		IsPreview:   req.IsPreview,
		Duration:    req.Duration,
	}
	if err := s.lessonRepo.Create(ctx, lesson); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to create lesson", err, zap.Int("chapter_id", req.ChapterID))
	}

	s.invalidate.courses(ctx, false, courseID)
	return lesson, nil
}

// Update applies a partial update to a lesson and returns the updated lesson
func (s *lessonService) Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateLessonRequest) (*models.Lesson, error) {
	if req.IsEmpty() {
		return nil, apperr.Validation("at least one field must be provided")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, apperr.Validation("title cannot be empty")
	}
	if req.ContentType != nil && !req.ContentType.IsValid() {
		return nil, apperr.Validation("invalid contentType")
	}
	if req.OrderIndex != nil && *req.OrderIndex < 0 {
		return nil, apperr.Validation("orderIndex must be non-negative")
	}
	if req.Duration != nil && *req.Duration < 0 {
		return nil, apperr.Validation("duration must be non-negative")
	}

	_, courseID, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.lessonRepo.Update(ctx, id, req); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to update lesson", err, zap.Int("lesson_id", id))
	}
	s.invalidate.courses(ctx, false, courseID)

	updated, err := s.lessonRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch lesson", err, zap.Int("lesson_id", id))
	}
	return updated, nil
}

// Delete deletes a lesson
func (s *lessonService) Delete(ctx context.Context, p principal.Principal, id int) error {
	_, courseID, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.lessonRepo.Delete(ctx, id); err != nil {
		return storeError(s.logger, apperr.KindWriteFailed, "Failed to delete lesson", err, zap.Int("lesson_id", id))
	}
	s.invalidate.courses(ctx, false, courseID)
	return nil
}
