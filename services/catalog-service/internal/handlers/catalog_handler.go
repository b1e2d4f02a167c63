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

// CatalogService is the interface that wraps methods for browsing the public catalog
type CatalogService interface {
	// List retrieves a page of courses visible to the caller
	//
	// "ctx" is the context for the request.
	// "p" is the caller, anonymous for visitors.
	// "filter" holds the listing predicates.
	// "sort" is the requested sort.
	// "page" is the requested page window.
	//
	// Returns the page and an error if any.
	List(ctx context.Context, p principal.Principal, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Course], error)
	// GetByID retrieves a course with its chapters and lessons
	//
	// "ctx" is the context for the request.
	// "p" is the caller, anonymous for visitors.
	// "id" is the ID of the course.
	//
	// Returns the course tree and an error if any.
	GetByID(ctx context.Context, p principal.Principal, id int) (*models.CourseWithChapters, error)
	// GetBySlug retrieves a course tree by its slug
	//
	// "ctx" is the context for the request.
	// "p" is the caller, anonymous for visitors.
	// "slug" is the slug of the course.
	//
	// Returns the course tree and an error if any.
	GetBySlug(ctx context.Context, p principal.Principal, slug string) (*models.CourseWithChapters, error)
	// Featured retrieves featured published courses
	//
	// "ctx" is the context for the request.
	// "limit" is the maximum number of courses, defaulted when not positive.
	//
	// Returns the courses and an error if any.
	Featured(ctx context.Context, limit int) ([]models.Course, error)
}

// CatalogHandler handles HTTP requests for the public course catalog
type CatalogHandler struct {
	handlers.BaseHandler
	service CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all catalog handler routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/courses", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/featured", h.Featured)
		r.Get("/slug/{slug}", h.GetBySlug)
		r.Get("/{id}", h.GetByID)
	})
}

// List handles GET /courses
// @Summary List catalog courses
// @Description Visitors only see published public courses
// @Tags catalog
// @Produce json
// @Param search query string false "Search in title, description and tagline"
// @Param courseId query int false "Course ID"
// @Param instructorId query int false "Instructor ID"
// @Param categoryId query int false "Category ID"
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
// @Failure 500 {object} handlers.Envelope "Internal server error"
// @Router /courses [get]
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.List(r.Context(), callerOf(r), courseFilter(q), sortRequest(q), pageRequest(q))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, page)
}

// Featured handles GET /courses/featured
// @Summary Featured courses
// @Tags catalog
// @Produce json
// @Param limit query int false "Number of courses (default: 6, max: 50)"
// @Success 200 {object} handlers.Envelope "Featured courses"
// @Router /courses/featured [get]
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v, ok := queryInt(r.URL.Query(), "limit"); ok {
		limit = *v
	}

	courses, err := h.service.Featured(r.Context(), limit)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, courses)
}

// GetBySlug handles GET /courses/slug/{slug}
// @Summary Get a course by slug
// @Tags catalog
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} handlers.Envelope "Course with chapters and lessons"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Router /courses/slug/{slug} [get]
func (h *CatalogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	course, err := h.service.GetBySlug(r.Context(), callerOf(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, course)
}

// GetByID handles GET /courses/{id}
// @Summary Get a course
// @Tags catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} handlers.Envelope "Course with chapters and lessons"
// @Failure 400 {object} handlers.Envelope "Invalid id"
// @Failure 404 {object} handlers.Envelope "Course not found"
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	course, err := h.service.GetByID(r.Context(), callerOf(r), id)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, course)
}
