package services

import (
	"context"
	"time"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

const (
	defaultFeaturedLimit = 6
	maxFeaturedLimit     = 50
)

type catalogService struct {
	courseRepo CourseRepository
	tree       *hierarchyReader
	cache      PageCache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewCatalogService creates a new public catalog service
//
// cache may be nil, in which case course pages are always read from the store.
func NewCatalogService(courseRepo CourseRepository, chapterRepo ChapterRepository, lessonRepo LessonRepository, cache PageCache, ttl time.Duration, logger *zap.Logger) *catalogService {
	return &catalogService{
		courseRepo: courseRepo,
		tree:       &hierarchyReader{courses: courseRepo, chapters: chapterRepo, lessons: lessonRepo, logger: logger},
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

// List retrieves a page of the public catalog
//
// Everyone but admins only sees published public courses, whatever the filter asks for.
func (s *catalogService) List(ctx context.Context, p principal.Principal, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Course], error) {
	if filter == nil {
		filter = &models.CourseFilter{}
	}
	if !p.IsAdmin() {
		published := models.CourseStatusPublished
		public := models.CourseVisibilityPublic
		filter.Status = &published
		filter.Visibility = &public
	}

	page = page.Normalize(courseDefaultPageSize)
	courses, total, err := s.courseRepo.List(ctx, filter, sort, page)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch courses", err)
	}
	return models.NewPage(courses, total, page), nil
}

// visible reports whether the principal may open the course page
//
// Unlisted courses are reachable by direct link.
func visible(p principal.Principal, course *models.Course) bool {
	if p.IsAdmin() {
		return true
	}
	return course.Status == models.CourseStatusPublished && course.Visibility != models.CourseVisibilityPrivate
}

// GetByID retrieves the public page of a course with its chapters and lessons
func (s *catalogService) GetByID(ctx context.Context, p principal.Principal, id int) (*models.CourseWithChapters, error) {
	path := publicCoursePath(id)

	var tree *models.CourseWithChapters
	if s.cache != nil {
		var cached models.CourseWithChapters
		hit, err := s.cache.GetJSON(ctx, path, &cached)
		if err != nil {
			s.logger.Warn("failed to read cached course page", zap.String("path", path), zap.Error(err))
		}
		if hit {
			tree = &cached
		}
	}

	if tree == nil {
		var err error
		tree, err = s.tree.courseTree(ctx, id, true)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetJSON(ctx, path, tree, s.ttl); err != nil {
				s.logger.Warn("failed to cache course page", zap.String("path", path), zap.Error(err))
			}
		}
	}

	if !visible(p, &tree.Course) {
		return nil, apperr.NotFound("Course not found")
	}
	return tree, nil
}

// GetBySlug retrieves the public page of a course by its slug
func (s *catalogService) GetBySlug(ctx context.Context, p principal.Principal, slug string) (*models.CourseWithChapters, error) {
	if slug == "" {
		return nil, apperr.Validation("slug is required")
	}
	course, err := s.courseRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch course", err, zap.String("slug", slug))
	}
	if !visible(p, course) {
		return nil, apperr.NotFound("Course not found")
	}
	return s.GetByID(ctx, p, course.ID)
}

// Featured retrieves the highest rated featured courses of the public catalog
func (s *catalogService) Featured(ctx context.Context, limit int) ([]models.Course, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	if limit > maxFeaturedLimit {
		limit = maxFeaturedLimit
	}
	courses, err := s.courseRepo.Featured(ctx, limit)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch featured courses", err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}
