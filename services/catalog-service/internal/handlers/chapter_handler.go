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

// ChapterService is the interface that wraps methods for authoring chapters
type ChapterService interface {
	// List retrieves a page of chapters
	//
	// Instructors must scope the listing to a course they teach.
	List(ctx context.Context, p principal.Principal, filter *models.ChapterFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Chapter], error)
	// Get retrieves a chapter, with its ordered lessons when includeLessons is set
	Get(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.Chapter, error)
	// Create creates a new chapter
	Create(ctx context.Context, p principal.Principal, req *models.CreateChapterRequest) (*models.Chapter, error)
	// Update applies a partial update to a chapter
	Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateChapterRequest) (*models.Chapter, error)
	// Delete deletes a chapter together with its lessons
	Delete(ctx context.Context, p principal.Principal, id int) error
	// Duplicate copies a chapter to the end of its course
	Duplicate(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.DuplicateChapterResult, error)
}

// ChapterBulkService is the interface that wraps bulk chapter mutations
type ChapterBulkService interface {
	// BulkUpdateChapters applies one patch to many chapters and returns the number of updated chapters
	BulkUpdateChapters(ctx context.Context, p principal.Principal, req *models.BulkUpdateChaptersRequest) (int, error)
	// BulkDeleteChapters deletes many chapters and returns the number of deleted chapters
	BulkDeleteChapters(ctx context.Context, p principal.Principal, req *models.BulkIDsRequest) (int, error)
}

// ChapterHandler handles HTTP requests for authoring chapters
type ChapterHandler struct {
	handlers.BaseHandler
	service ChapterService
	reorder ReorderService
	bulk    ChapterBulkService
}

// NewChapterHandler creates a new chapter handler
func NewChapterHandler(svc ChapterService, reorder ReorderService, bulk ChapterBulkService, logger *zap.Logger) *ChapterHandler {
	return &ChapterHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
		reorder:     reorder,
		bulk:        bulk,
	}
}

// RegisterRoutes registers all chapter handler routes
func (h *ChapterHandler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard/chapters", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/bulk-update", h.BulkUpdate)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/duplicate", h.Duplicate)
		r.Put("/{id}/lessons/order", h.ReorderLessons)
	})
}

// List handles GET /dashboard/chapters
// @Summary List chapters
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param chapterId query int false "Chapter ID"
// @Param courseId query int false "Course ID (required for instructors)"
// @Param isFree query bool false "Free chapters only"
// @Param search query string false "Search in title and description"
// @Param createdAfter query string false "Created at or after (RFC 3339 or YYYY-MM-DD)"
// @Param createdBefore query string false "Created at or before (RFC 3339 or YYYY-MM-DD)"
// @Param updatedAfter query string false "Updated at or after (RFC 3339 or YYYY-MM-DD)"
// @Param updatedBefore query string false "Updated at or before (RFC 3339 or YYYY-MM-DD)"
// @Param sortBy query string false "title, order_index, created_at or updated_at (default: order_index)"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 50, max: 100)"
// @Success 200 {object} handlers.Envelope "Page of chapters"
// @Failure 400 {object} handlers.Envelope "Missing courseId"
// @Router /dashboard/chapters [get]
func (h *ChapterHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.List(r.Context(), callerOf(r), chapterFilter(q), sortRequest(q), pageRequest(q))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, page)
}

// Create handles POST /dashboard/chapters
// @Summary Create a chapter
// @Description orderIndex is required and must be non-negative
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateChapterRequest true "Chapter creation request"
// @Success 201 {object} handlers.Envelope "Created chapter"
// @Failure 400 {object} handlers.Envelope "Invalid request"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Router /dashboard/chapters [post]
func (h *ChapterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChapterRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	chapter, err := h.service.Create(r.Context(), callerOf(r), &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusCreated, chapter)
}

// Get handles GET /dashboard/chapters/{id}
// @Summary Get a chapter
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chapter ID"
// @Param includeLessons query bool false "Attach the ordered lessons"
// @Success 200 {object} handlers.Envelope "Chapter"
// @Failure 404 {object} handlers.Envelope "Chapter not found"
// @Router /dashboard/chapters/{id} [get]
func (h *ChapterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	includeLessons := queryBool(r.URL.Query(), "includeLessons")

	chapter, err := h.service.Get(r.Context(), callerOf(r), id, includeLessons != nil && *includeLessons)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, chapter)
}

// Update handles PATCH /dashboard/chapters/{id}
// @Summary Update a chapter
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chapter ID"
// @Param request body models.UpdateChapterRequest true "Fields to change"
// @Success 200 {object} handlers.Envelope "Updated chapter"
// @Router /dashboard/chapters/{id} [patch]
func (h *ChapterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	var req models.UpdateChapterRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	chapter, err := h.service.Update(r.Context(), callerOf(r), id, &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, chapter)
}

// Delete handles DELETE /dashboard/chapters/{id}
// @Summary Delete a chapter with its lessons
// @Tags dashboard
// @Security BearerAuth
// @Param id path int true "Chapter ID"
// @Success 204 "Deleted"
// @Router /dashboard/chapters/{id} [delete]
func (h *ChapterHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Duplicate handles POST /dashboard/chapters/{id}/duplicate
// @Summary Duplicate a chapter to the end of its course
// @Description lessonsPending is set when the lesson copy was queued for retry
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chapter ID"
// @Param includeLessons query bool false "Copy the lessons as well (default: true)"
// @Success 201 {object} handlers.Envelope "Duplicated chapter"
// @Router /dashboard/chapters/{id}/duplicate [post]
func (h *ChapterHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	includeLessons := true
	if v := queryBool(r.URL.Query(), "includeLessons"); v != nil {
		includeLessons = *v
	}

	result, err := h.service.Duplicate(r.Context(), callerOf(r), id, includeLessons)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusCreated, result)
}

// ReorderLessons handles PUT /dashboard/chapters/{id}/lessons/order
// @Summary Reorder the lessons of a chapter
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chapter ID"
// @Param request body models.ReorderRequest true "New positions"
// @Success 200 {object} handlers.Envelope "Reorder result"
// @Success 207 {object} handlers.Envelope "Some updates failed"
// @Router /dashboard/chapters/{id}/lessons/order [put]
func (h *ChapterHandler) ReorderLessons(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.reorder.ReorderLessons(r.Context(), callerOf(r), id, &req)
	respondReorder(&h.BaseHandler, w, r, result, err)
}

// BulkUpdate handles POST /dashboard/chapters/bulk-update
// @Summary Apply one patch to many chapters
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BulkUpdateChaptersRequest true "IDs and patch"
// @Success 200 {object} BulkResponse "Updated count"
// @Router /dashboard/chapters/bulk-update [post]
func (h *ChapterHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateChaptersRequest
	if err := decodeBody(r, &req); err != nil {
		respondBulk(&h.BaseHandler, w, r, true, 0, err)
		return
	}

	count, err := h.bulk.BulkUpdateChapters(r.Context(), callerOf(r), &req)
	respondBulk(&h.BaseHandler, w, r, true, count, err)
}

// BulkDelete handles POST /dashboard/chapters/bulk-delete
// @Summary Delete many chapters with their lessons
// @Tags dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BulkIDsRequest true "IDs"
// @Success 200 {object} BulkResponse "Deleted count"
// @Router /dashboard/chapters/bulk-delete [post]
func (h *ChapterHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req models.BulkIDsRequest
	if err := decodeBody(r, &req); err != nil {
		respondBulk(&h.BaseHandler, w, r, false, 0, err)
		return
	}

	count, err := h.bulk.BulkDeleteChapters(r.Context(), callerOf(r), &req)
	respondBulk(&h.BaseHandler, w, r, false, count, err)
}
