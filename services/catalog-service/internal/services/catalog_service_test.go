package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture(cache PageCache) (*catalogService, *mockCourseRepository) {
	courses := newMockCourseRepository(
		models.Course{ID: 1, Slug: "published", Status: models.CourseStatusPublished, Visibility: models.CourseVisibilityPublic},
		models.Course{ID: 2, Slug: "unlisted", Status: models.CourseStatusPublished, Visibility: models.CourseVisibilityUnlisted},
		models.Course{ID: 3, Slug: "draft", Status: models.CourseStatusDraft, Visibility: models.CourseVisibilityPublic},
		models.Course{ID: 4, Slug: "private", Status: models.CourseStatusPublished, Visibility: models.CourseVisibilityPrivate},
	)
	chapters := newMockChapterRepository(
		models.Chapter{ID: 10, CourseID: 1, OrderIndex: 1},
		models.Chapter{ID: 11, CourseID: 1, OrderIndex: 0},
	)
	lessons := newMockLessonRepository(models.Lesson{ID: 100, ChapterID: 11})
	return NewCatalogService(courses, chapters, lessons, cache, time.Minute, testLogger()), courses
}

func TestCatalogService_List_ForcesPublishedPublic(t *testing.T) {
	svc, courses := newCatalogFixture(nil)
	draft := models.CourseStatusDraft
	private := models.CourseVisibilityPrivate

	for _, p := range []principal.Principal{anonymous, student, instructor} {
		_, err := svc.List(context.Background(), p, &models.CourseFilter{Status: &draft, Visibility: &private}, models.Sort{}, models.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, models.CourseStatusPublished, *courses.lastFilter.Status)
		assert.Equal(t, models.CourseVisibilityPublic, *courses.lastFilter.Visibility)
	}

	_, err := svc.List(context.Background(), admin, &models.CourseFilter{Status: &draft}, models.Sort{}, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, *courses.lastFilter.Status)
	assert.Nil(t, courses.lastFilter.Visibility)
}

func TestCatalogService_GetByID(t *testing.T) {
	tests := []struct {
		name         string
		principal    principal.Principal
		id           int
		expectedKind apperr.Kind
	}{
		{name: "published public", principal: anonymous, id: 1},
		{name: "unlisted by link", principal: student, id: 2},
		{name: "draft hidden", principal: anonymous, id: 3, expectedKind: apperr.KindNotFound},
		{name: "private hidden", principal: instructor, id: 4, expectedKind: apperr.KindNotFound},
		{name: "admin sees draft", principal: admin, id: 3},
		{name: "missing", principal: admin, id: 99, expectedKind: apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newCatalogFixture(nil)

			tree, err := svc.GetByID(context.Background(), tt.principal, tt.id)

			if tt.expectedKind != "" {
				assert.Equal(t, tt.expectedKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, tree.ID)
		})
	}
}

func TestCatalogService_GetByID_Cache(t *testing.T) {
	cache := newMockPageCache()
	svc, courses := newCatalogFixture(cache)

	first, err := svc.GetByID(context.Background(), anonymous, 1)
	require.NoError(t, err)
	require.Len(t, first.Chapters, 2)
	assert.Equal(t, 11, first.Chapters[0].ID)
	require.Len(t, first.Chapters[0].Lessons, 1)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.views, "/course/1")

	// a cached page is served without touching the store
	courses.err = errors.New("store down")
	second, err := svc.GetByID(context.Background(), anonymous, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Chapters[0].ID, second.Chapters[0].ID)
}

func TestCatalogService_GetByID_CacheErrorFallsBack(t *testing.T) {
	cache := newMockPageCache()
	cache.getErr = errors.New("redis timeout")
	svc, _ := newCatalogFixture(cache)

	tree, err := svc.GetByID(context.Background(), anonymous, 1)

	require.NoError(t, err)
	assert.Equal(t, 1, tree.ID)
}

func TestCatalogService_GetBySlug(t *testing.T) {
	svc, _ := newCatalogFixture(nil)

	tree, err := svc.GetBySlug(context.Background(), anonymous, "published")
	require.NoError(t, err)
	assert.Equal(t, 1, tree.ID)

	_, err = svc.GetBySlug(context.Background(), anonymous, "draft")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.GetBySlug(context.Background(), anonymous, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCatalogService_Featured(t *testing.T) {
	svc, courses := newCatalogFixture(nil)
	for i := range 60 {
		courses.featured = append(courses.featured, models.Course{ID: i + 1})
	}

	tests := []struct {
		limit    int
		expected int
	}{
		{limit: 0, expected: 6},
		{limit: 3, expected: 3},
		{limit: 500, expected: 50},
	}
	for _, tt := range tests {
		featured, err := svc.Featured(context.Background(), tt.limit)
		require.NoError(t, err)
		assert.Len(t, featured, tt.expected)
	}
}
