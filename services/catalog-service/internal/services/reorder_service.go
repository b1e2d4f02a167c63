package services

import (
	"context"
	"fmt"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

type reorderService struct {
	courseRepo  CourseRepository
	chapterRepo ChapterRepository
	lessonRepo  LessonRepository
	gate        courseGate
	invalidate  invalidator
	logger      *zap.Logger
}

// NewReorderService creates a new reorder service
func NewReorderService(courseRepo CourseRepository, chapterRepo ChapterRepository, lessonRepo LessonRepository, sink Invalidator, logger *zap.Logger) *reorderService {
	return &reorderService{
		courseRepo:  courseRepo,
		chapterRepo: chapterRepo,
		lessonRepo:  lessonRepo,
		gate:        courseGate{courses: courseRepo, logger: logger},
		invalidate:  invalidator{sink: sink, logger: logger},
		logger:      logger,
	}
}

// validateReorderItems checks that ids and order indices are unique and indices are non-negative
func validateReorderItems(items []models.ReorderItem) error {
	if len(items) == 0 {
		return apperr.Validation("items are required")
	}
	ids := make(map[int]struct{}, len(items))
	indices := make(map[int]struct{}, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			return apperr.Validation("invalid id %d", item.ID)
		}
		if item.OrderIndex < 0 {
			return apperr.Validation("orderIndex must be non-negative")
		}
		if _, ok := ids[item.ID]; ok {
			return apperr.Validation("duplicate id %d", item.ID)
		}
		if _, ok := indices[item.OrderIndex]; ok {
			return apperr.Validation("duplicate orderIndex %d", item.OrderIndex)
		}
		ids[item.ID] = struct{}{}
		indices[item.OrderIndex] = struct{}{}
	}
	return nil
}

// ReorderChapters assigns new order indices to the chapters of a course
//
// Updates run concurrently and are not rolled back: when some of them fail the result
// is returned together with a partial failure error.
func (s *reorderService) ReorderChapters(ctx context.Context, p principal.Principal, courseID int, req *models.ReorderRequest) (*models.ReorderResult, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	if err := validateReorderItems(req.Items); err != nil {
		return nil, err
	}
	if err := s.gate.authorize(ctx, p, courseID); err != nil {
		return nil, err
	}

	return s.apply(ctx, courseID, req, func(ctx context.Context, item models.ReorderItem) (bool, error) {
		return s.chapterRepo.UpdateOrderIndex(ctx, courseID, item.ID, item.OrderIndex)
	}, zap.Int("course_id", courseID))
}

// ReorderLessons assigns new order indices to the lessons of a chapter
func (s *reorderService) ReorderLessons(ctx context.Context, p principal.Principal, chapterID int, req *models.ReorderRequest) (*models.ReorderResult, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	if err := validateReorderItems(req.Items); err != nil {
		return nil, err
	}
	chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapter", err, zap.Int("chapter_id", chapterID))
	}
	if err := s.gate.authorize(ctx, p, chapter.CourseID); err != nil {
		return nil, err
	}

	return s.apply(ctx, chapter.CourseID, req, func(ctx context.Context, item models.ReorderItem) (bool, error) {
		return s.lessonRepo.UpdateOrderIndex(ctx, chapterID, item.ID, item.OrderIndex)
	}, zap.Int("chapter_id", chapterID))
}

// apply bumps the curriculum version of the course and dispatches one update per item
func (s *reorderService) apply(
	ctx context.Context,
	courseID int,
	req *models.ReorderRequest,
	update func(context.Context, models.ReorderItem) (bool, error),
	scope zap.Field,
) (*models.ReorderResult, error) {
	version, err := s.courseRepo.BumpCurriculumVersion(ctx, courseID, req.ExpectedVersion)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to reorder", err, zap.Int("course_id", courseID))
	}
	defer s.invalidate.courses(ctx, false, courseID)

	// Dispatched writes complete even if the caller goes away
	writeCtx := context.WithoutCancel(ctx)
	errorChan := make(chan error, len(req.Items))
	for _, item := range req.Items {
		go func(item models.ReorderItem) {
			ok, err := update(writeCtx, item)
			if err == nil && !ok {
				err = fmt.Errorf("item %d not found under parent", item.ID)
			}
			errorChan <- err
		}(item)
	}

	failed := 0
	for range req.Items {
		if err := <-errorChan; err != nil {
			failed++
			s.logger.Error("failed to update order index", scope, zap.Error(err))
		}
	}

	result := &models.ReorderResult{
		Updated:           len(req.Items) - failed,
		CurriculumVersion: version,
	}
	if failed > 0 {
		return result, apperr.New(apperr.KindPartialFailure, fmt.Sprintf("%d of %d items failed to reorder", failed, len(req.Items)))
	}
	return result, nil
}

// RepairOrder compacts the chapter and lesson order indices of a course to 0..n-1
func (s *reorderService) RepairOrder(ctx context.Context, p principal.Principal, courseID int) (*models.RepairResult, error) {
	if _, err := s.gate.load(ctx, p, courseID); err != nil {
		return nil, err
	}
	return s.repair(ctx, courseID)
}

func (s *reorderService) repair(ctx context.Context, courseID int) (*models.RepairResult, error) {
	chapters, err := s.chapterRepo.CompactOrder(ctx, courseID)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to repair chapter order", err, zap.Int("course_id", courseID))
	}
	lessons, err := s.lessonRepo.CompactOrder(ctx, courseID)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to repair lesson order", err, zap.Int("course_id", courseID))
	}
	if chapters+lessons > 0 {
		s.invalidate.courses(ctx, false, courseID)
	}
	return &models.RepairResult{ChaptersUpdated: chapters, LessonsUpdated: lessons}, nil
}

// RepairAll compacts every course whose chapters or lessons have gaps or duplicate order indices
//
// It is used by the scheduler and the operator CLI and performs no role checks.
// A failing course is logged and skipped. Returns the number of repaired courses.
func (s *reorderService) RepairAll(ctx context.Context) (int, error) {
	courseIDs, err := s.courseRepo.ListWithOrderGaps(ctx)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindQueryFailed, "Failed to find courses with order gaps", err)
	}

	repaired := 0
	for _, courseID := range courseIDs {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}
		result, err := s.repair(ctx, courseID)
		if err != nil {
			s.logger.Warn("skipping order repair of course", zap.Int("course_id", courseID), zap.Error(err))
			continue
		}
		repaired++
		s.logger.Info("repaired course order",
			zap.Int("course_id", courseID),
			zap.Int("chapters_updated", result.ChaptersUpdated),
			zap.Int("lessons_updated", result.LessonsUpdated),
		)
	}
	return repaired, nil
}
