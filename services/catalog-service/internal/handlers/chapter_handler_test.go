package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newChapterHandler() (*ChapterHandler, *mockChapterService, *mockReorderService, *mockBulkService) {
	chapters := &mockChapterService{chapter: &models.Chapter{ID: 40, CourseID: 10, Title: "Intro", OrderIndex: 1}}
	reorder := &mockReorderService{}
	bulk := &mockBulkService{}
	return NewChapterHandler(chapters, reorder, bulk, zap.NewNop()), chapters, reorder, bulk
}

func TestChapterHandler_List(t *testing.T) {
	h, chapters, _, _ := newChapterHandler()

	rec := serve(h, instructor, http.MethodGet, "/dashboard/chapters?courseId=10&isFree=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, chapters.lastFilter.CourseID)
	assert.Equal(t, 10, *chapters.lastFilter.CourseID)
	assert.True(t, *chapters.lastFilter.IsFree)

	chapters.err = apperr.Validation("courseId is required")
	rec = serve(h, instructor, http.MethodGet, "/dashboard/chapters", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"courseId is required"}`, rec.Body.String())
}

func TestChapterHandler_Get(t *testing.T) {
	h, chapters, _, _ := newChapterHandler()

	rec := serve(h, instructor, http.MethodGet, "/dashboard/chapters/40?includeLessons=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40, chapters.lastID)
	assert.True(t, chapters.lessons)

	chapters.err = apperr.NotFound("Chapter not found")
	rec = serve(h, instructor, http.MethodGet, "/dashboard/chapters/41", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChapterHandler_Duplicate(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		expectedLessons bool
	}{
		{name: "lessons by default", query: "", expectedLessons: true},
		{name: "without lessons", query: "?includeLessons=false", expectedLessons: false},
		{name: "unparsable flag keeps default", query: "?includeLessons=maybe", expectedLessons: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, chapters, _, _ := newChapterHandler()
			chapters.duplicate = &models.DuplicateChapterResult{
				Chapter:        models.Chapter{ID: 41, CourseID: 10, Title: "Intro", OrderIndex: 2},
				LessonsPending: true,
			}

			rec := serve(h, instructor, http.MethodPost, "/dashboard/chapters/40/duplicate"+tt.query, "")

			require.Equal(t, http.StatusCreated, rec.Code)
			assert.Equal(t, 40, chapters.lastID)
			assert.Equal(t, tt.expectedLessons, chapters.lessons)
			assert.Contains(t, rec.Body.String(), `"lessonsPending":true`)
		})
	}
}

func TestChapterHandler_Delete(t *testing.T) {
	h, chapters, _, _ := newChapterHandler()

	rec := serve(h, instructor, http.MethodDelete, "/dashboard/chapters/40", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 40, chapters.lastID)
}

func TestChapterHandler_ReorderLessons(t *testing.T) {
	h, _, reorder, _ := newChapterHandler()
	reorder.result = &models.ReorderResult{Updated: 2, CurriculumVersion: 6}

	rec := serve(h, instructor, http.MethodPut, "/dashboard/chapters/40/lessons/order",
		`{"items":[{"id":500,"orderIndex":1},{"id":501,"orderIndex":0}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40, reorder.parentID)
	assert.Nil(t, reorder.req.ExpectedVersion)

	rec = serve(h, instructor, http.MethodPut, "/dashboard/chapters/40/lessons/order", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChapterHandler_Bulk(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		body           string
		count          int
		serviceErr     error
		expectedStatus int
		expectedBody   string
		expectLog      bool
	}{
		{
			name:           "bulk update",
			target:         "/dashboard/chapters/bulk-update",
			body:           `{"ids":[40,41],"patch":{"isFree":true}}`,
			count:          2,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true,"updatedCount":2}`,
		},
		{
			name:           "bulk delete",
			target:         "/dashboard/chapters/bulk-delete",
			body:           `{"ids":[40,41,42]}`,
			count:          3,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true,"deletedCount":3}`,
		},
		{
			name:           "foreign chapter",
			target:         "/dashboard/chapters/bulk-delete",
			body:           `{"ids":[40,99]}`,
			serviceErr:     apperr.Forbidden("you do not own this course"),
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"success":false,"error":"you do not own this course"}`,
		},
		{
			name:           "store failure is logged",
			target:         "/dashboard/chapters/bulk-update",
			body:           `{"ids":[40],"patch":{"title":"x"}}`,
			serviceErr:     apperr.Wrap(apperr.KindWriteFailed, "Failed to update chapters", errors.New("deadlock")),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"success":false,"error":"Failed to update chapters"}`,
			expectLog:      true,
		},
		{
			name:           "malformed body",
			target:         "/dashboard/chapters/bulk-delete",
			body:           `{"ids":"40"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"success":false,"error":"invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			bulk := &mockBulkService{count: tt.count, err: tt.serviceErr}
			h := NewChapterHandler(&mockChapterService{}, &mockReorderService{}, bulk, zap.New(core))

			rec := serve(h, instructor, http.MethodPost, tt.target, tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			if tt.expectLog {
				assert.Equal(t, 1, logs.Len())
			} else {
				assert.Zero(t, logs.Len())
			}
		})
	}
}
