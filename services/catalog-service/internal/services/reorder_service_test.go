package services

import (
	"context"
	"errors"
	"testing"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReorderFixture() (*reorderService, *mockCourseRepository, *mockChapterRepository, *mockLessonRepository, *mockInvalidator) {
	courses := newMockCourseRepository(
		ownedCourse(),
		models.Course{ID: 20, InstructorID: stranger.UserID},
	)
	chapters := newMockChapterRepository(
		models.Chapter{ID: 1, CourseID: 10, OrderIndex: 0},
		models.Chapter{ID: 2, CourseID: 10, OrderIndex: 1},
		models.Chapter{ID: 3, CourseID: 10, OrderIndex: 2},
		models.Chapter{ID: 4, CourseID: 20, OrderIndex: 0},
	)
	lessons := newMockLessonRepository(
		models.Lesson{ID: 11, ChapterID: 1, OrderIndex: 0},
		models.Lesson{ID: 12, ChapterID: 1, OrderIndex: 1},
	)
	sink := &mockInvalidator{}
	return NewReorderService(courses, chapters, lessons, sink, testLogger()), courses, chapters, lessons, sink
}

func TestValidateReorderItems(t *testing.T) {
	tests := []struct {
		name    string
		items   []models.ReorderItem
		wantErr bool
	}{
		{name: "valid", items: []models.ReorderItem{{ID: 1, OrderIndex: 1}, {ID: 2, OrderIndex: 0}}},
		{name: "empty", items: nil, wantErr: true},
		{name: "duplicate id", items: []models.ReorderItem{{ID: 1, OrderIndex: 0}, {ID: 1, OrderIndex: 1}}, wantErr: true},
		{name: "duplicate index", items: []models.ReorderItem{{ID: 1, OrderIndex: 0}, {ID: 2, OrderIndex: 0}}, wantErr: true},
		{name: "negative index", items: []models.ReorderItem{{ID: 1, OrderIndex: -1}}, wantErr: true},
		{name: "invalid id", items: []models.ReorderItem{{ID: 0, OrderIndex: 0}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReorderItems(tt.items)
			if tt.wantErr {
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReorderService_ReorderChapters(t *testing.T) {
	t.Run("persists the dense permutation", func(t *testing.T) {
		svc, courses, chapters, _, sink := newReorderFixture()
		req := &models.ReorderRequest{Items: []models.ReorderItem{
			{ID: 3, OrderIndex: 0},
			{ID: 1, OrderIndex: 1},
			{ID: 2, OrderIndex: 2},
		}}

		result, err := svc.ReorderChapters(context.Background(), instructor, 10, req)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Updated)
		assert.Equal(t, 1, result.CurriculumVersion)
		assert.Equal(t, []int{3, 1, 2}, chapters.orderOf(10))
		assert.Equal(t, 1, courses.courses[10].CurriculumVersion)
		assert.ElementsMatch(t, []string{"/dashboard/course/10", "/course/10"}, sink.paths())
	})

	t.Run("expected version mismatch", func(t *testing.T) {
		svc, _, chapters, _, _ := newReorderFixture()
		req := &models.ReorderRequest{
			Items:           []models.ReorderItem{{ID: 3, OrderIndex: 0}, {ID: 1, OrderIndex: 1}, {ID: 2, OrderIndex: 2}},
			ExpectedVersion: intPtr(5),
		}

		_, err := svc.ReorderChapters(context.Background(), instructor, 10, req)

		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Equal(t, []int{1, 2, 3}, chapters.orderOf(10))
	})

	t.Run("expected version match", func(t *testing.T) {
		svc, _, _, _, _ := newReorderFixture()
		req := &models.ReorderRequest{
			Items:           []models.ReorderItem{{ID: 2, OrderIndex: 0}, {ID: 1, OrderIndex: 1}, {ID: 3, OrderIndex: 2}},
			ExpectedVersion: intPtr(0),
		}

		result, err := svc.ReorderChapters(context.Background(), instructor, 10, req)

		require.NoError(t, err)
		assert.Equal(t, 1, result.CurriculumVersion)
	})

	t.Run("partial failure", func(t *testing.T) {
		svc, _, chapters, _, sink := newReorderFixture()
		chapters.failOrderIDs = map[int]bool{2: true}
		req := &models.ReorderRequest{Items: []models.ReorderItem{
			{ID: 3, OrderIndex: 0},
			{ID: 1, OrderIndex: 1},
			{ID: 2, OrderIndex: 2},
			{ID: 4, OrderIndex: 3},
		}}

		result, err := svc.ReorderChapters(context.Background(), instructor, 10, req)

		require.Error(t, err)
		assert.Equal(t, apperr.KindPartialFailure, apperr.KindOf(err))
		assert.Equal(t, "2 of 4 items failed to reorder", err.Error())
		require.NotNil(t, result)
		assert.Equal(t, 2, result.Updated)
		assert.Len(t, sink.calls, 1)
	})

	t.Run("other instructor", func(t *testing.T) {
		svc, courses, _, _, _ := newReorderFixture()
		req := &models.ReorderRequest{Items: []models.ReorderItem{{ID: 1, OrderIndex: 0}}}

		_, err := svc.ReorderChapters(context.Background(), stranger, 10, req)

		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		assert.Zero(t, courses.courses[10].CurriculumVersion)
	})

	t.Run("invalid items", func(t *testing.T) {
		svc, _, _, _, sink := newReorderFixture()

		_, err := svc.ReorderChapters(context.Background(), instructor, 10, &models.ReorderRequest{})

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Empty(t, sink.calls)
	})

	t.Run("caller checked before items", func(t *testing.T) {
		tests := []struct {
			name         string
			principal    principal.Principal
			expectedKind apperr.Kind
		}{
			{name: "anonymous", principal: anonymous, expectedKind: apperr.KindUnauthorized},
			{name: "student", principal: student, expectedKind: apperr.KindForbidden},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, _, _, _, _ := newReorderFixture()

				_, err := svc.ReorderChapters(context.Background(), tt.principal, 10, &models.ReorderRequest{})
				assert.Equal(t, tt.expectedKind, apperr.KindOf(err))

				_, err = svc.ReorderLessons(context.Background(), tt.principal, 1, &models.ReorderRequest{})
				assert.Equal(t, tt.expectedKind, apperr.KindOf(err))
			})
		}
	})
}

func TestReorderService_ReorderLessons(t *testing.T) {
	svc, courses, _, lessons, _ := newReorderFixture()
	req := &models.ReorderRequest{Items: []models.ReorderItem{{ID: 12, OrderIndex: 0}, {ID: 11, OrderIndex: 1}}}

	result, err := svc.ReorderLessons(context.Background(), instructor, 1, req)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, lessons.lessons[12].OrderIndex)
	assert.Equal(t, 1, lessons.lessons[11].OrderIndex)
	assert.Equal(t, 1, courses.courses[10].CurriculumVersion)

	_, err = svc.ReorderLessons(context.Background(), instructor, 404, req)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestReorderService_RepairOrder(t *testing.T) {
	svc, _, chapters, lessons, sink := newReorderFixture()
	chapters.compacted[10] = 2
	lessons.compacted[10] = 5

	result, err := svc.RepairOrder(context.Background(), instructor, 10)

	require.NoError(t, err)
	assert.Equal(t, &models.RepairResult{ChaptersUpdated: 2, LessonsUpdated: 5}, result)
	assert.Len(t, sink.calls, 1)

	_, err = svc.RepairOrder(context.Background(), student, 10)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestReorderService_RepairAll(t *testing.T) {
	svc, courses, chapters, _, sink := newReorderFixture()
	courses.gaps = []int{10, 20}
	chapters.compacted[10] = 1

	repaired, err := svc.RepairAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, repaired)
	// course 20 needed no rewrite, so only course 10 is invalidated
	assert.ElementsMatch(t, []string{"/dashboard/course/10", "/course/10"}, sink.paths())

	chapters.compactErr = errors.New("lock timeout")
	repaired, err = svc.RepairAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
