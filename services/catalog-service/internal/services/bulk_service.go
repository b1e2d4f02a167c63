package services

import (
	"context"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

type bulkService struct {
	courseRepo  CourseRepository
	chapterRepo ChapterRepository
	gate        courseGate
	invalidate  invalidator
	logger      *zap.Logger
}

// NewBulkService creates a new bulk service
func NewBulkService(courseRepo CourseRepository, chapterRepo ChapterRepository, sink Invalidator, logger *zap.Logger) *bulkService {
	return &bulkService{
		courseRepo:  courseRepo,
		chapterRepo: chapterRepo,
		gate:        courseGate{courses: courseRepo, logger: logger},
		invalidate:  invalidator{sink: sink, logger: logger},
		logger:      logger,
	}
}

// BulkUpdateCourses applies one patch to many courses and returns the number of updated courses
//
// Slugs are unique per course and cannot be set in bulk.
func (s *bulkService) BulkUpdateCourses(ctx context.Context, p principal.Principal, req *models.BulkUpdateCoursesRequest) (int, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return 0, err
	}
	ids, err := validateIDs(req.IDs)
	if err != nil {
		return 0, err
	}
	patch := &req.Patch
	if patch.IsEmpty() {
		return 0, apperr.Validation("at least one field must be provided")
	}
	if patch.Slug != nil {
		return 0, apperr.Validation("slug cannot be updated in bulk")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return 0, apperr.Validation("title cannot be empty")
	}
	if err := validateCourseFields(nil, patch.Status, patch.Visibility, patch.Level, patch.Rating); err != nil {
		return 0, err
	}

	updated, err := s.courseRepo.BulkUpdate(ctx, ids, patch, p.UserID)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindWriteFailed, "Failed to update courses", err, zap.Ints("ids", ids))
	}

	s.invalidate.courses(ctx, true, updated...)
	return len(updated), nil
}

// BulkDeleteCourses deletes many courses together with their chapters and lessons and returns the number of deleted courses
func (s *bulkService) BulkDeleteCourses(ctx context.Context, p principal.Principal, req *models.BulkIDsRequest) (int, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return 0, err
	}
	ids, err := validateIDs(req.IDs)
	if err != nil {
		return 0, err
	}

	deleted, err := s.courseRepo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindWriteFailed, "Failed to delete courses", err, zap.Ints("ids", ids))
	}

	s.invalidate.courses(ctx, true, deleted...)
	return len(deleted), nil
}

// authorizeChapters checks that the principal may author the courses of every listed chapter
func (s *bulkService) authorizeChapters(ctx context.Context, p principal.Principal, ids []int) error {
	if err := principal.Require(p, authorRoles...); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	refs, err := s.chapterRepo.RefsByIDs(ctx, ids)
	if err != nil {
		return storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapters", err, zap.Ints("ids", ids))
	}
	return s.gate.authorizeAll(ctx, p, refCourseIDs(refs))
}

func refCourseIDs(refs []models.ChapterRef) []int {
	courseIDs := make([]int, len(refs))
	for i, ref := range refs {
		courseIDs[i] = ref.CourseID
	}
	return uniqueIDs(courseIDs)
}

// BulkUpdateChapters applies one patch to many chapters and returns the number of updated chapters
//
// Order indices are positional and cannot be set in bulk.
func (s *bulkService) BulkUpdateChapters(ctx context.Context, p principal.Principal, req *models.BulkUpdateChaptersRequest) (int, error) {
	ids, err := validateIDs(req.IDs)
	if err != nil {
		return 0, err
	}
	patch := &req.Patch
	if patch.OrderIndex != nil {
		return 0, apperr.Validation("orderIndex cannot be updated in bulk")
	}
	if err := validateChapterPatch(patch); err != nil {
		return 0, err
	}
	if err := s.authorizeChapters(ctx, p, ids); err != nil {
		return 0, err
	}

	refs, err := s.chapterRepo.BulkUpdate(ctx, ids, patch)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindWriteFailed, "Failed to update chapters", err, zap.Ints("ids", ids))
	}

	s.invalidate.courses(ctx, false, refCourseIDs(refs)...)
	return len(refs), nil
}

// BulkDeleteChapters deletes many chapters together with their lessons and returns the number of deleted chapters
func (s *bulkService) BulkDeleteChapters(ctx context.Context, p principal.Principal, req *models.BulkIDsRequest) (int, error) {
	ids, err := validateIDs(req.IDs)
	if err != nil {
		return 0, err
	}
	if err := s.authorizeChapters(ctx, p, ids); err != nil {
		return 0, err
	}

	refs, err := s.chapterRepo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindWriteFailed, "Failed to delete chapters", err, zap.Ints("ids", ids))
	}

	s.invalidate.courses(ctx, false, refCourseIDs(refs)...)
	return len(refs), nil
}
