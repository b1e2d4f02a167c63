package services

import (
	"context"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

const chapterDefaultPageSize = 50

type chapterService struct {
	courseRepo  CourseRepository
	chapterRepo ChapterRepository
	lessonRepo  LessonRepository
	gate        courseGate
	tree        *hierarchyReader
	invalidate  invalidator
	enqueuer    CopyEnqueuer
	logger      *zap.Logger
}

// NewChapterService creates a new chapter service
//
// enqueuer may be nil, in which case failed lesson copies are only reported.
func NewChapterService(
	courseRepo CourseRepository,
	chapterRepo ChapterRepository,
	lessonRepo LessonRepository,
	sink Invalidator,
	enqueuer CopyEnqueuer,
	logger *zap.Logger,
) *chapterService {
	return &chapterService{
		courseRepo:  courseRepo,
		chapterRepo: chapterRepo,
		lessonRepo:  lessonRepo,
		gate:        courseGate{courses: courseRepo, logger: logger},
		tree:        &hierarchyReader{courses: courseRepo, chapters: chapterRepo, lessons: lessonRepo, logger: logger},
		invalidate:  invalidator{sink: sink, logger: logger},
		enqueuer:    enqueuer,
		logger:      logger,
	}
}

// List retrieves a page of chapters
//
// Instructors must scope the listing to a course they teach.
func (s *chapterService) List(ctx context.Context, p principal.Principal, filter *models.ChapterFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Chapter], error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.ChapterFilter{}
	}
	if !p.IsAdmin() {
		if filter.CourseID == nil {
			return nil, apperr.Validation("courseId is required")
		}
		if err := s.gate.authorize(ctx, p, *filter.CourseID); err != nil {
			return nil, err
		}
	}

	page = page.Normalize(chapterDefaultPageSize)
	chapters, total, err := s.chapterRepo.List(ctx, filter, sort, page)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapters", err)
	}
	return models.NewPage(chapters, total, page), nil
}

// load reads a chapter and checks access to its course
func (s *chapterService) load(ctx context.Context, p principal.Principal, id int) (*models.Chapter, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	chapter, err := s.chapterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapter", err, zap.Int("chapter_id", id))
	}
	if err := s.gate.authorize(ctx, p, chapter.CourseID); err != nil {
		return nil, err
	}
	return chapter, nil
}

// Get retrieves a chapter, with its ordered lessons when includeLessons is set
func (s *chapterService) Get(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.Chapter, error) {
	chapter, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !includeLessons {
		return chapter, nil
	}
	return s.tree.chapterTree(ctx, chapter)
}

// ListByCourse retrieves the ordered chapters of a course
func (s *chapterService) ListByCourse(ctx context.Context, p principal.Principal, courseID int, includeLessons bool) ([]models.Chapter, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	tree, err := s.tree.courseTree(ctx, courseID, includeLessons)
	if err != nil {
		return nil, err
	}
	if err := s.gate.authorizeLoaded(p, &tree.Course); err != nil {
		return nil, err
	}
	return tree.Chapters, nil
}

// Create creates a new chapter at the requested order index
func (s *chapterService) Create(ctx context.Context, p principal.Principal, req *models.CreateChapterRequest) (*models.Chapter, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if req.CourseID <= 0 {
		return nil, apperr.Validation("courseId is required")
	}
	if req.OrderIndex == nil {
		return nil, apperr.Validation("orderIndex is required")
	}
	if *req.OrderIndex < 0 {
		return nil, apperr.Validation("orderIndex must be non-negative")
	}
	if _, err := s.gate.load(ctx, p, req.CourseID); err != nil {
		return nil, err
	}

	chapter := &models.Chapter{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  *req.OrderIndex,
		IsFree:      req.IsFree,
	}
	if err := s.chapterRepo.Create(ctx, chapter); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to create chapter", err, zap.Int("course_id", req.CourseID))
	}

	s.invalidate.courses(ctx, false, chapter.CourseID)
	return chapter, nil
}

// Update applies a partial update to a chapter and returns the updated chapter
func (s *chapterService) Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateChapterRequest) (*models.Chapter, error) {
	if err := validateChapterPatch(req); err != nil {
		return nil, err
	}
	chapter, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if err := s.chapterRepo.Update(ctx, id, req); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to update chapter", err, zap.Int("chapter_id", id))
	}
	s.invalidate.courses(ctx, false, chapter.CourseID)

	updated, err := s.chapterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapter", err, zap.Int("chapter_id", id))
	}
	return updated, nil
}

func validateChapterPatch(req *models.UpdateChapterRequest) error {
	if req.IsEmpty() {
		return apperr.Validation("at least one field must be provided")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return apperr.Validation("title cannot be empty")
	}
	if req.OrderIndex != nil && *req.OrderIndex < 0 {
		return apperr.Validation("orderIndex must be non-negative")
	}
	return nil
}

// Delete deletes a chapter together with its lessons
func (s *chapterService) Delete(ctx context.Context, p principal.Principal, id int) error {
	if _, err := s.load(ctx, p, id); err != nil {
		return err
	}
	courseID, err := s.chapterRepo.Delete(ctx, id)
	if err != nil {
		return storeError(s.logger, apperr.KindWriteFailed, "Failed to delete chapter", err, zap.Int("chapter_id", id))
	}
	s.invalidate.courses(ctx, false, courseID)
	return nil
}

// Duplicate copies a chapter to the end of its course, with its lessons when includeLessons is set
//
// The chapter is written first. If the lesson copy fails afterwards the chapter is kept,
// the result reports the lessons as pending and the copy is queued for retry.
func (s *chapterService) Duplicate(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.DuplicateChapterResult, error) {
	source, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	maxIndex, err := s.chapterRepo.MaxOrderIndex(ctx, source.CourseID)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapters", err, zap.Int("course_id", source.CourseID))
	}

	duplicate := &models.Chapter{
		CourseID:    source.CourseID,
		Title:       source.Title,
		Description: source.Description,
		OrderIndex:  maxIndex + 1,
		IsFree:      source.IsFree,
	}
	if err := s.chapterRepo.Create(ctx, duplicate); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to duplicate chapter", err, zap.Int("chapter_id", id))
	}
	defer s.invalidate.courses(ctx, false, source.CourseID)

	result := &models.DuplicateChapterResult{Chapter: *duplicate}
	if !includeLessons {
		return result, nil
	}

	copied, err := s.copyLessons(ctx, source.ID, duplicate.ID)
	if err != nil {
		s.logger.Error("failed to copy lessons of duplicated chapter",
			zap.Int("source_chapter_id", source.ID),
			zap.Int("target_chapter_id", duplicate.ID),
			zap.Error(err),
		)
		result.LessonsPending = true
		s.enqueueCopy(ctx, source.ID, duplicate.ID)
		return result, nil
	}
	result.LessonsCopied = copied
	return result, nil
}

func (s *chapterService) enqueueCopy(ctx context.Context, sourceID, targetID int) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueCopyLessons(context.WithoutCancel(ctx), sourceID, targetID); err != nil {
		s.logger.Error("failed to enqueue lesson copy",
			zap.Int("source_chapter_id", sourceID),
			zap.Int("target_chapter_id", targetID),
			zap.Error(err),
		)
	}
}

// copyLessons inserts copies of the source lessons into the target chapter in one statement
func (s *chapterService) copyLessons(ctx context.Context, sourceID, targetID int) (int, error) {
	lessons, err := s.lessonRepo.GetByChapterIDs(ctx, []int{sourceID})
	if err != nil {
		return 0, err
	}
	if len(lessons) == 0 {
		return 0, nil
	}
	copies := make([]models.Lesson, len(lessons))
	for i, lesson := range lessons {
		copies[i] = models.Lesson{
			ChapterID:   targetID,
			Title:       lesson.Title,
			ContentType: lesson.ContentType,
			ContentURL:  lesson.ContentURL,
			ContentBody: lesson.ContentBody,
			OrderIndex:  lesson.OrderIndex,
			IsPreview:   lesson.IsPreview,
			Duration:    lesson.Duration,
		}
	}
	return s.lessonRepo.CreateBatch(ctx, copies)
}

// CopyLessons copies the lessons of one chapter into another
//
// It is used by the retry worker and the operator CLI and performs no role checks.
// A target chapter that already has lessons is left untouched and 0 is returned.
func (s *chapterService) CopyLessons(ctx context.Context, sourceChapterID, targetChapterID int) (int, error) {
	if sourceChapterID <= 0 || targetChapterID <= 0 {
		return 0, apperr.Validation("source and target chapters are required")
	}
	if sourceChapterID == targetChapterID {
		return 0, apperr.Validation("source and target chapters must differ")
	}

	target, err := s.chapterRepo.GetByID(ctx, targetChapterID)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapter", err, zap.Int("chapter_id", targetChapterID))
	}
	existing, err := s.lessonRepo.CountByChapter(ctx, targetChapterID)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch lessons", err, zap.Int("chapter_id", targetChapterID))
	}
	if existing > 0 {
		s.logger.Info("target chapter already has lessons, skipping copy",
			zap.Int("target_chapter_id", targetChapterID),
			zap.Int("lessons", existing),
		)
		return 0, nil
	}

	copied, err := s.copyLessons(ctx, sourceChapterID, targetChapterID)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindWriteFailed, "Failed to copy lessons", err,
			zap.Int("source_chapter_id", sourceChapterID),
			zap.Int("target_chapter_id", targetChapterID),
		)
	}
	s.invalidate.courses(ctx, false, target.CourseID)
	return copied, nil
}

// Stats summarises the chapters of a course
func (s *chapterService) Stats(ctx context.Context, p principal.Principal, courseID int) (*models.ChapterStats, error) {
	if err := s.gate.authorize(ctx, p, courseID); err != nil {
		return nil, err
	}
	stats, err := s.chapterRepo.Stats(ctx, courseID)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch chapter stats", err, zap.Int("course_id", courseID))
	}
	return stats, nil
}
