package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCourseHandler() (*CourseHandler, *mockCourseService, *mockReorderService, *mockChapterStats) {
	courses := &mockCourseService{
		course: &models.Course{ID: 10, Title: "Go Basics", Slug: "go-basics", InstructorID: 7},
	}
	reorder := &mockReorderService{}
	stats := &mockChapterStats{stats: &models.ChapterStats{TotalChapters: 3}}
	return NewCourseHandler(courses, reorder, stats, zap.NewNop()), courses, reorder, stats
}

func TestCourseHandler_List(t *testing.T) {
	h, courses, _, _ := newCourseHandler()
	courses.page = models.NewPage([]models.Course{*courses.course}, 1, models.PageRequest{Page: 1, PageSize: 10})

	rec := serve(h, instructor, http.MethodGet,
		"/dashboard/courses?status=draft&tags=go,backend&minRating=4.5&sortBy=rating&sortOrder=DESC&page=2&pageSize=5&createdAfter=2024-01-02", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, instructor, courses.caller)
	require.NotNil(t, courses.lastFilter.Status)
	assert.Equal(t, models.CourseStatusDraft, *courses.lastFilter.Status)
	assert.Equal(t, []string{"go", "backend"}, courses.lastFilter.Tags)
	assert.Equal(t, 4.5, *courses.lastFilter.MinRating)
	require.NotNil(t, courses.lastFilter.CreatedAfter)
	assert.Equal(t, 2024, courses.lastFilter.CreatedAfter.Year())
	assert.Equal(t, models.Sort{Field: "rating", Direction: models.SortDesc}, courses.lastSort)
	assert.Equal(t, models.PageRequest{Page: 2, PageSize: 5}, courses.lastPage)

	var body struct {
		Success bool                       `json:"success"`
		Data    models.Page[models.Course] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Data.Total)
}

func TestCourseHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "created",
			body:           `{"title":"Go Basics","slug":"go-basics"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			body:           `{"title":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
		{
			name:           "slug taken",
			body:           `{"title":"Go Basics","slug":"go-basics"}`,
			serviceErr:     apperr.Conflict("Course with this slug already exists"),
			expectedStatus: http.StatusConflict,
			expectedError:  "Course with this slug already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, courses, _, _ := newCourseHandler()
			courses.err = tt.serviceErr

			rec := serve(h, instructor, http.MethodPost, "/dashboard/courses", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedError, body.Error)
			assert.Equal(t, tt.expectedError == "", body.Success)
		})
	}
}

func TestCourseHandler_Get(t *testing.T) {
	h, courses, _, _ := newCourseHandler()

	rec := serve(h, instructor, http.MethodGet, "/dashboard/courses/10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, courses.lastID)

	rec = serve(h, instructor, http.MethodGet, "/dashboard/courses/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid id"}`, rec.Body.String())

	courses.err = apperr.Forbidden("you do not own this course")
	rec = serve(h, principal.Principal{UserID: 8, Role: principal.RoleInstructor}, http.MethodGet, "/dashboard/courses/10", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCourseHandler_UpdateAndDelete(t *testing.T) {
	h, courses, _, _ := newCourseHandler()

	rec := serve(h, instructor, http.MethodPatch, "/dashboard/courses/10", `{"title":"Go in Depth"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, courses.updated.Title)
	assert.Equal(t, "Go in Depth", *courses.updated.Title)

	rec = serve(h, instructor, http.MethodDelete, "/dashboard/courses/10", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 10, courses.deleted)
	assert.Empty(t, rec.Body.String())
}

func TestCourseHandler_GetChapters(t *testing.T) {
	h, courses, _, _ := newCourseHandler()
	courses.tree = &models.CourseWithChapters{Course: *courses.course, Chapters: []models.Chapter{{ID: 1, OrderIndex: 1}}}

	rec := serve(h, instructor, http.MethodGet, "/dashboard/courses/10/chapters?includeLessons=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, courses.lessons)

	rec = serve(h, instructor, http.MethodGet, "/dashboard/courses/10/chapters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, courses.lessons)
}

func TestCourseHandler_GetChapterStats(t *testing.T) {
	h, _, _, stats := newCourseHandler()

	rec := serve(h, instructor, http.MethodGet, "/dashboard/courses/10/chapters/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, stats.courseID)
	assert.Contains(t, rec.Body.String(), `"totalChapters":3`)
}

func TestCourseHandler_ReorderChapters(t *testing.T) {
	tests := []struct {
		name           string
		result         *models.ReorderResult
		serviceErr     error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all applied",
			result:         &models.ReorderResult{Updated: 3, CurriculumVersion: 4},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true,"data":{"updated":3,"curriculumVersion":4}}`,
		},
		{
			name:           "partial failure keeps result",
			result:         &models.ReorderResult{Updated: 1, CurriculumVersion: 4},
			serviceErr:     apperr.New(apperr.KindPartialFailure, "2 of 3 items failed to reorder"),
			expectedStatus: http.StatusMultiStatus,
			expectedBody:   `{"success":false,"error":"2 of 3 items failed to reorder","data":{"updated":1,"curriculumVersion":4}}`,
		},
		{
			name:           "stale version",
			serviceErr:     apperr.Conflict("curriculum was modified, reload and retry"),
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"success":false,"error":"curriculum was modified, reload and retry"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, reorder, _ := newCourseHandler()
			reorder.result, reorder.err = tt.result, tt.serviceErr

			rec := serve(h, instructor, http.MethodPut, "/dashboard/courses/10/chapters/order",
				`{"items":[{"id":1,"orderIndex":2},{"id":2,"orderIndex":1}],"expectedVersion":3}`)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			assert.Equal(t, 10, reorder.parentID)
			require.Len(t, reorder.req.Items, 2)
			assert.Equal(t, 3, *reorder.req.ExpectedVersion)
		})
	}
}

func TestCourseHandler_RepairOrder(t *testing.T) {
	h, _, reorder, _ := newCourseHandler()
	reorder.repair = &models.RepairResult{ChaptersUpdated: 2, LessonsUpdated: 5}

	rec := serve(h, admin, http.MethodPost, "/dashboard/courses/10/repair-order", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"chaptersUpdated":2,"lessonsUpdated":5}}`, rec.Body.String())
}
