package handlers

import (
	"context"
	"net/http"

	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/libs/handlers"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CourseService is the interface that wraps methods for authoring courses
type CourseService interface {
	// List retrieves a page of courses for the dashboard
	//
	// "ctx" is the context for the request.
	// "p" is the caller.
	// "filter" holds the listing predicates.
	// "sort" is the requested sort.
	// "page" is the requested page window.
	//
	// Returns the page and an error if any.
	List(ctx context.Context, p principal.Principal, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Course], error)
	// Get retrieves a course
	//
	// "ctx" is the context for the request.
	// "p" is the caller.
	// "id" is the ID of the course.
	//
	// Returns the course and an error if any.
	Get(ctx context.Context, p principal.Principal, id int) (*models.Course, error)
	// GetWithChapters retrieves a course with its ordered chapters
	//
	// "ctx" is the context for the request.
	// "p" is the caller.
	// "id" is the ID of the course.
	// "includeLessons" attaches the ordered lessons of every chapter.
	//
	// Returns the course tree and an error if any.
	GetWithChapters(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.CourseWithChapters, error)
	// Create creates a new course
	//
	// "ctx" is the context for the request.
	// "p" is the caller.
	// "req" is the request to create a course.
	//
	// Returns the created course and an error if any.
	Create(ctx context.Context, p principal.Principal, req *models.CreateCourseRequest) (*models.Course, error)
	// Update applies a partial update to a course
	//
	// "ctx" is the context for the request.
	// "p" is the caller.
	// "id" is the ID of the course.
	// "req" holds the fields to change.
	//
	// Returns the updated course and an error if any.
	Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateCourseRequest) (*models.Course, error)
	// Delete deletes a course with all of its chapters and lessons
	//
	// "ctx" is the context for the request.
	// "p" is the caller.
	// "id" is the ID of the course.
	//
	// Returns an error if any.
	Delete(ctx context.Context, p principal.Principal, id int) error
}

// ReorderService is the interface that wraps methods for ordering chapters and lessons
type ReorderService interface {
	// ReorderChapters assigns new order indices to the chapters of a course
	//
	// Returns the result and a partial failure error when some updates failed.
	ReorderChapters(ctx context.Context, p principal.Principal, courseID int, req *models.ReorderRequest) (*models.ReorderResult, error)
	// ReorderLessons assigns new order indices to the lessons of a chapter
	//
	// Returns the result and a partial failure error when some updates failed.
	ReorderLessons(ctx context.Context, p principal.Principal, chapterID int, req *models.ReorderRequest) (*models.ReorderResult, error)
	// RepairOrder compacts the chapter and lesson order indices of a course
	RepairOrder(ctx context.Context, p principal.Principal, courseID int) (*models.RepairResult, error)
}

// ChapterStatsService summarises the chapters of a course
type ChapterStatsService interface {
	Stats(ctx context.Context, p principal.Principal, courseID int) (*models.ChapterStats, error)
}

// CourseHandler handles HTTP requests for authoring courses
type CourseHandler struct {
	handlers.BaseHandler
	service      CourseService
	reorder      ReorderService
	chapterStats ChapterStatsService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(svc CourseService, reorder ReorderService, chapterStats ChapterStatsService, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:  handlers.BaseHandler{Logger: logger},
		service:      svc,
		reorder:      reorder,
		chapterStats: chapterStats,
	}
}

// RegisterRoutes registers all course handler routes
func (h *CourseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard/courses", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/chapters", h.GetChapters)
		r.Get("/{id}/chapters/stats", h.GetChapterStats)
		r.Put("/{id}/chapters/order", h.ReorderChapters)
		r.Post("/{id}/repair-order", h.RepairOrder)
	})
}

// List handles GET /dashboard/courses
// @Summary List dashboard courses
// @Description Paginated courses of the dashboard; instructors only see the courses they teach
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search in title, description and tagline"
// @Param courseId query int false "Course ID"
// @Param instructorId query int false "Instructor ID (admins only; instructors see their own courses)"
// @Param categoryId query int false "Category ID"
// @Param status query string false "draft, published or archived"
// @Param visibility query string false "public, private or unlisted"
// @Param level query string false "beginner, intermediate, advanced or all_levels"
// @Param languages query string false "Comma separated language codes"
// @Param tags query string false "Comma separated tags, any match"
// @Param minRating query number false "Minimum rating"
// @Param maxRating query number false "Maximum rating"
// @Param featured query bool false "Featured courses only"
// @Param minEnrollments query int false "Minimum enrollments"
// @Param maxEnrollments query int false "Maximum enrollments"
// @Param createdAfter query string false "Created at or after (RFC 3339 or YYYY-MM-DD)"
// @Param createdBefore query string false "Created at or before (RFC 3339 or YYYY-MM-DD)"
// @Param updatedAfter query string false "Updated at or after (RFC 3339 or YYYY-MM-DD)"
// @Param updatedBefore query string false "Updated at or before (RFC 3339 or YYYY-MM-DD)"
// @Param sortBy query string false "title, created_at, updated_at, rating, enrollments_count or featured"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 10, max: 100)"
// @Success 200 {object} handlers.Envelope "Page of courses"
// @Failure 401 {object} handlers.Envelope "Unauthorized"
// @Failure 403 {object} handlers.Envelope "Forbidden"
// @Failure 500 {object} handlers.Envelope "Internal server error"
// @Router /dashboard/courses [get]
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.List(r.Context(), callerOf(r), courseFilter(q), sortRequest(q), pageRequest(q))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, page)
}

// Create handles POST /dashboard/courses
// @Summary Create a course
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCourseRequest true "Course creation request"
// @Success 201 {object} handlers.Envelope "Created course"
// @Failure 400 {object} handlers.Envelope "Invalid request"
// @Failure 409 {object} handlers.Envelope "Slug already exists"
// @Router /dashboard/courses [post]
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	course, err := h.service.Create(r.Context(), callerOf(r), &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusCreated, course)
}

// Get handles GET /dashboard/courses/{id}
// @Summary Get a course
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} handlers.Envelope "Course"
// @Failure 403 {object} handlers.Envelope "Forbidden"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Router /dashboard/courses/{id} [get]
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	course, err := h.service.Get(r.Context(), callerOf(r), id)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, course)
}

// Update handles PATCH /dashboard/courses/{id}
// @Summary Update a course
// @Description Partial update; only admins may reassign the instructor
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body models.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} handlers.Envelope "Updated course"
// @Failure 400 {object} handlers.Envelope "Invalid request"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Failure 409 {object} handlers.Envelope "Slug already exists"
// @Router /dashboard/courses/{id} [patch]
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	var req models.UpdateCourseRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	course, err := h.service.Update(r.Context(), callerOf(r), id, &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, course)
}

// Delete handles DELETE /dashboard/courses/{id}
// @Summary Delete a course with its chapters and lessons
// @Tags dashboard
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204 "Deleted"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Router /dashboard/courses/{id} [delete]
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), callerOf(r), id); err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetChapters handles GET /dashboard/courses/{id}/chapters
// @Summary Get a course with its ordered chapters
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param includeLessons query bool false "Attach the lessons of every chapter"
// @Success 200 {object} handlers.Envelope "Course with chapters"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Router /dashboard/courses/{id}/chapters [get]
func (h *CourseHandler) GetChapters(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	includeLessons := queryBool(r.URL.Query(), "includeLessons")

	tree, err := h.service.GetWithChapters(r.Context(), callerOf(r), id, includeLessons != nil && *includeLessons)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, tree)
}

// GetChapterStats handles GET /dashboard/courses/{id}/chapters/stats
// @Summary Chapter statistics of a course
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} handlers.Envelope "Chapter statistics"
// @Router /dashboard/courses/{id}/chapters/stats [get]
func (h *CourseHandler) GetChapterStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	stats, err := h.chapterStats.Stats(r.Context(), callerOf(r), id)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, stats)
}

// ReorderChapters handles PUT /dashboard/courses/{id}/chapters/order
// @Summary Reorder the chapters of a course
// @Description Pass expectedVersion to reject the reorder when the curriculum changed meanwhile
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body models.ReorderRequest true "New positions"
// @Success 200 {object} handlers.Envelope "Reorder result"
// @Success 207 {object} handlers.Envelope "Some updates failed"
// @Failure 409 {object} handlers.Envelope "Curriculum was modified"
// @Router /dashboard/courses/{id}/chapters/order [put]
func (h *CourseHandler) ReorderChapters(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	var req models.ReorderRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	result, err := h.reorder.ReorderChapters(r.Context(), callerOf(r), id, &req)
	respondReorder(&h.BaseHandler, w, r, result, err)
}

// RepairOrder handles POST /dashboard/courses/{id}/repair-order
// @Summary Compact chapter and lesson order indices of a course
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} handlers.Envelope "Repair result"
// @Router /dashboard/courses/{id}/repair-order [post]
func (h *CourseHandler) RepairOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	result, err := h.reorder.RepairOrder(r.Context(), callerOf(r), id)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, result)
}
