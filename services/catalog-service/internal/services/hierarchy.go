package services

import (
	"cmp"
	"context"
	"slices"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// hierarchyReader assembles a course or chapter together with its ordered children
type hierarchyReader struct {
	courses  CourseRepository
	chapters ChapterRepository
	lessons  LessonRepository
	logger   *zap.Logger
}

// byOrder orders siblings by order index, ties broken by ID
func byOrder(aIndex, aID, bIndex, bID int) int {
	if c := cmp.Compare(aIndex, bIndex); c != 0 {
		return c
	}
	return cmp.Compare(aID, bID)
}

func sortChapters(chapters []models.Chapter) {
	slices.SortStableFunc(chapters, func(a, b models.Chapter) int {
		return byOrder(a.OrderIndex, a.ID, b.OrderIndex, b.ID)
	})
}

func sortLessons(lessons []models.Lesson) {
	slices.SortStableFunc(lessons, func(a, b models.Lesson) int {
		return byOrder(a.OrderIndex, a.ID, b.OrderIndex, b.ID)
	})
}

// attachLessons distributes lessons to their chapters in order
func attachLessons(chapters []models.Chapter, lessons []models.Lesson) {
	byChapter := make(map[int][]models.Lesson, len(chapters))
	for _, lesson := range lessons {
		byChapter[lesson.ChapterID] = append(byChapter[lesson.ChapterID], lesson)
	}
	for i := range chapters {
		children := byChapter[chapters[i].ID]
		if children == nil {
			children = []models.Lesson{}
		}
		sortLessons(children)
		chapters[i].Lessons = children
	}
}

// courseTree reads a course with its ordered chapters, and their lessons when includeLessons is set
func (h *hierarchyReader) courseTree(ctx context.Context, courseID int, includeLessons bool) (*models.CourseWithChapters, error) {
	var (
		course   *models.Course
		chapters []models.Chapter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		course, err = h.courses.GetByID(gctx, courseID)
		if err != nil {
			return storeError(h.logger, apperr.KindQueryFailed, "Failed to fetch course", err, zap.Int("course_id", courseID))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		chapters, err = h.chapters.GetByCourseID(gctx, courseID)
		if err != nil {
			return storeError(h.logger, apperr.KindQueryFailed, "Failed to fetch chapters", err, zap.Int("course_id", courseID))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if chapters == nil {
		chapters = []models.Chapter{}
	}
	sortChapters(chapters)
	if includeLessons && len(chapters) > 0 {
		ids := make([]int, len(chapters))
		for i, chapter := range chapters {
			ids[i] = chapter.ID
		}
		lessons, err := h.lessons.GetByChapterIDs(ctx, ids)
		if err != nil {
			return nil, storeError(h.logger, apperr.KindQueryFailed, "Failed to fetch lessons", err, zap.Int("course_id", courseID))
		}
		attachLessons(chapters, lessons)
	}

	return &models.CourseWithChapters{Course: *course, Chapters: chapters}, nil
}

// chapterTree attaches the ordered lessons to a chapter
func (h *hierarchyReader) chapterTree(ctx context.Context, chapter *models.Chapter) (*models.Chapter, error) {
	lessons, err := h.lessons.GetByChapterIDs(ctx, []int{chapter.ID})
	if err != nil {
		return nil, storeError(h.logger, apperr.KindQueryFailed, "Failed to fetch lessons", err, zap.Int("chapter_id", chapter.ID))
	}
	tree := *chapter
	sortLessons(lessons)
	tree.Lessons = lessons
	return &tree, nil
}
