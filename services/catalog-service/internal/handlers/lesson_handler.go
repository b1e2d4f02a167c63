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

// LessonService is the interface that wraps methods for authoring lessons
type LessonService interface {
	List(ctx context.Context, p principal.Principal, filter *models.LessonFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Lesson], error)
	Get(ctx context.Context, p principal.Principal, id int) (*models.Lesson, error)
	Create(ctx context.Context, p principal.Principal, req *models.CreateLessonRequest) (*models.Lesson, error)
	Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateLessonRequest) (*models.Lesson, error)
	Delete(ctx context.Context, p principal.Principal, id int) error
}

// LessonHandler handles HTTP requests for authoring lessons
type LessonHandler struct {
	handlers.BaseHandler
	service LessonService
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(svc LessonService, logger *zap.Logger) *LessonHandler {
	return &LessonHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all lesson handler routes
func (h *LessonHandler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard/lessons", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /dashboard/lessons
// @Summary List lessons
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param chapterId query int false "Chapter ID (required for instructors)"
// @Param contentType query string false "video, audio, pdf, text, image, ppt, file, link, iframe, quiz, assignment, coding_test, form, scorm, live_class, live_test or heading"
// @Param isPreview query bool false "Preview lessons only"
// @Param search query string false "Search in title and description"
// @Param sortBy query string false "title, order_index, duration, created_at or updated_at (default: order_index)"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 50, max: 100)"
// @Success 200 {object} handlers.Envelope "Page of lessons"
// @Failure 400 {object} handlers.Envelope "Invalid filter"
// @Router /dashboard/lessons [get]
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.List(r.Context(), callerOf(r), lessonFilter(q), sortRequest(q), pageRequest(q))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, page)
}

// Create handles POST /dashboard/lessons
// @Summary Create a lesson
// @Description orderIndex is required and must be non-negative
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateLessonRequest true "Lesson creation request"
// @Success 201 {object} handlers.Envelope "Created lesson"
// @Failure 400 {object} handlers.Envelope "Invalid request"
// @Failure 404 {object} handlers.Envelope "Chapter not found"
// @Router /dashboard/lessons [post]
func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLessonRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	lesson, err := h.service.Create(r.Context(), callerOf(r), &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusCreated, lesson)
}

// Get handles GET /dashboard/lessons/{id}
// @Summary Get a lesson
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Success 200 {object} handlers.Envelope "Lesson"
// @Failure 404 {object} handlers.Envelope "Lesson not found"
// @Router /dashboard/lessons/{id} [get]
func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	lesson, err := h.service.Get(r.Context(), callerOf(r), id)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, lesson)
}

// Update handles PATCH /dashboard/lessons/{id}
// @Summary Update a lesson
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Param request body models.UpdateLessonRequest true "Fields to change"
// @Success 200 {object} handlers.Envelope "Updated lesson"
// @Router /dashboard/lessons/{id} [patch]
func (h *LessonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	var req models.UpdateLessonRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	lesson, err := h.service.Update(r.Context(), callerOf(r), id, &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, lesson)
}

// Delete handles DELETE /dashboard/lessons/{id}
// @Summary Delete a lesson
// @Tags dashboard
// @Security BearerAuth
// @Param id path int true "Lesson ID"
// @Success 204 "Deleted"
// @Router /dashboard/lessons/{id} [delete]
func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
