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

// CourseAdminService is the interface that wraps admin course operations
type CourseAdminService interface {
	// BulkUpdateCourses applies one patch to many courses and returns the number of updated courses
	BulkUpdateCourses(ctx context.Context, p principal.Principal, req *models.BulkUpdateCoursesRequest) (int, error)
	// BulkDeleteCourses deletes many courses and returns the number of deleted courses
	BulkDeleteCourses(ctx context.Context, p principal.Principal, req *models.BulkIDsRequest) (int, error)
}

// CourseStatsService summarises the whole catalog
type CourseStatsService interface {
	Stats(ctx context.Context, p principal.Principal) (*models.CourseStats, error)
}

// UserService is the interface that wraps methods for managing users
type UserService interface {
	// List retrieves a sorted page of users
	List(ctx context.Context, p principal.Principal, filter *models.UserFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.User], error)
	// Get retrieves a user with enrollment and teaching counts
	Get(ctx context.Context, p principal.Principal, id int) (*models.UserWithStats, error)
	// UpdateRole changes the role of a user
	UpdateRole(ctx context.Context, p principal.Principal, id int, req *models.UpdateRoleRequest) (*models.User, error)
	// UpdateProfile applies a partial profile update to a user
	UpdateProfile(ctx context.Context, p principal.Principal, id int, req *models.UpdateUserProfileRequest) (*models.User, error)
	// BulkUpdate applies one profile patch to many users and returns the number of updated users
	BulkUpdate(ctx context.Context, p principal.Principal, req *models.BulkUpdateUsersRequest) (int, error)
	// Delete removes a user
	Delete(ctx context.Context, p principal.Principal, id int) error
	// Stats counts users per role and recent activity
	Stats(ctx context.Context, p principal.Principal) (*models.UserStats, error)
	// LearnersOfCourse retrieves a page of learners enrolled in a course
	LearnersOfCourse(ctx context.Context, p principal.Principal, courseID int, page models.PageRequest) (*models.Page[models.Learner], error)
}

// AdminHandler handles HTTP requests for administration
type AdminHandler struct {
	handlers.BaseHandler
	courses CourseAdminService
	stats   CourseStatsService
	users   UserService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(courses CourseAdminService, stats CourseStatsService, users UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		courses:     courses,
		stats:       stats,
		users:       users,
	}
}

// RegisterRoutes registers all admin handler routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/courses/bulk-update", h.BulkUpdateCourses)
		r.Post("/courses/bulk-delete", h.BulkDeleteCourses)
		r.Get("/courses/stats", h.CourseStats)
		r.Get("/courses/{id}/learners", h.Learners)
		r.Get("/users", h.ListUsers)
		r.Post("/users/bulk-update", h.BulkUpdateUsers)
		r.Get("/users/stats", h.UserStats)
		r.Get("/users/{id}", h.GetUser)
		r.Patch("/users/{id}", h.UpdateUser)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Patch("/users/{id}/role", h.UpdateRole)
	})
}

// BulkUpdateCourses handles POST /admin/courses/bulk-update
// @Summary Apply one patch to many courses
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BulkUpdateCoursesRequest true "IDs and patch"
// @Success 200 {object} BulkResponse "Updated count"
// @Failure 400 {object} BulkResponse "Invalid request"
// @Failure 403 {object} BulkResponse "Forbidden"
// @Router /admin/courses/bulk-update [post]
func (h *AdminHandler) BulkUpdateCourses(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateCoursesRequest
	if err := decodeBody(r, &req); err != nil {
		respondBulk(&h.BaseHandler, w, r, true, 0, err)
		return
	}

	count, err := h.courses.BulkUpdateCourses(r.Context(), callerOf(r), &req)
	respondBulk(&h.BaseHandler, w, r, true, count, err)
}

// BulkDeleteCourses handles POST /admin/courses/bulk-delete
// @Summary Delete many courses with their chapters and lessons
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BulkIDsRequest true "IDs"
// @Success 200 {object} BulkResponse "Deleted count"
// @Router /admin/courses/bulk-delete [post]
func (h *AdminHandler) BulkDeleteCourses(w http.ResponseWriter, r *http.Request) {
	var req models.BulkIDsRequest
	if err := decodeBody(r, &req); err != nil {
		respondBulk(&h.BaseHandler, w, r, false, 0, err)
		return
	}

	count, err := h.courses.BulkDeleteCourses(r.Context(), callerOf(r), &req)
	respondBulk(&h.BaseHandler, w, r, false, count, err)
}

// CourseStats handles GET /admin/courses/stats
// @Summary Catalog statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.Envelope "Course statistics"
// @Router /admin/courses/stats [get]
func (h *AdminHandler) CourseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), callerOf(r))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, stats)
}

// Learners handles GET /admin/courses/{id}/learners
// @Summary Learners enrolled in a course
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 20, max: 100)"
// @Success 200 {object} handlers.Envelope "Page of learners"
// @Router /admin/courses/{id}/learners [get]
func (h *AdminHandler) Learners(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	page, err := h.users.LearnersOfCourse(r.Context(), callerOf(r), id, pageRequest(r.URL.Query()))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, page)
}

// ListUsers handles GET /admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Comma separated roles: student, instructor, admin"
// @Param search query string false "Search in username, email, first and last name"
// @Param createdAfter query string false "Created at or after (RFC 3339 or YYYY-MM-DD)"
// @Param createdBefore query string false "Created at or before (RFC 3339 or YYYY-MM-DD)"
// @Param lastActiveAfter query string false "Last active at or after (RFC 3339 or YYYY-MM-DD)"
// @Param hasPhone query bool false "Only users with (true) or without (false) a phone"
// @Param hasAvatar query bool false "Only users with (true) or without (false) an avatar"
// @Param sortBy query string false "created_at, last_active_at, username, email, first_name or last_name (default: created_at)"
// @Param sortOrder query string false "asc or desc (default: desc)"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 20, max: 100)"
// @Success 200 {object} handlers.Envelope "Page of users"
// @Failure 400 {object} handlers.Envelope "Invalid role"
// @Failure 403 {object} handlers.Envelope "Forbidden"
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.users.List(r.Context(), callerOf(r), userFilter(q), sortRequest(q), pageRequest(q))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, page)
}

// BulkUpdateUsers handles POST /admin/users/bulk-update
// @Summary Apply one profile patch to many users
// @Description Usernames and emails cannot be set in bulk
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BulkUpdateUsersRequest true "IDs and patch"
// @Success 200 {object} BulkResponse "Updated count"
// @Failure 400 {object} BulkResponse "Invalid request"
// @Failure 403 {object} BulkResponse "Forbidden"
// @Router /admin/users/bulk-update [post]
func (h *AdminHandler) BulkUpdateUsers(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateUsersRequest
	if err := decodeBody(r, &req); err != nil {
		respondBulk(&h.BaseHandler, w, r, true, 0, err)
		return
	}

	count, err := h.users.BulkUpdate(r.Context(), callerOf(r), &req)
	respondBulk(&h.BaseHandler, w, r, true, count, err)
}

// UserStats handles GET /admin/users/stats
// @Summary User statistics
// @Description Counts per role, users active in the last 7 days and users created in the last 30 days
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.Envelope "User statistics"
// @Router /admin/users/stats [get]
func (h *AdminHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context(), callerOf(r))
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, stats)
}

// GetUser handles GET /admin/users/{id}
// @Summary Get a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} handlers.Envelope "User with counts"
// @Failure 404 {object} handlers.Envelope "User not found"
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), callerOf(r), id)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /admin/users/{id}
// @Summary Update the profile of a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body models.UpdateUserProfileRequest true "Fields to change"
// @Success 200 {object} handlers.Envelope "Updated user"
// @Failure 400 {object} handlers.Envelope "Invalid request"
// @Failure 404 {object} handlers.Envelope "User not found"
// @Failure 409 {object} handlers.Envelope "Username or email already in use"
// @Router /admin/users/{id} [patch]
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	var req models.UpdateUserProfileRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), callerOf(r), id, &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/{id}
// @Summary Delete a user and their enrollments
// @Description Admins cannot delete their own account, nor users who still instruct a course
// @Tags admin
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204 "Deleted"
// @Failure 400 {object} handlers.Envelope "Own account"
// @Failure 404 {object} handlers.Envelope "User not found"
// @Failure 409 {object} handlers.Envelope "User still instructs courses"
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	if err := h.users.Delete(r.Context(), callerOf(r), id); err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateRole handles PATCH /admin/users/{id}/role
// @Summary Change the role of a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body models.UpdateRoleRequest true "New role"
// @Success 200 {object} handlers.Envelope "Updated user"
// @Failure 400 {object} handlers.Envelope "Invalid role"
// @Router /admin/users/{id}/role [patch]
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	var req models.UpdateRoleRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondAppError(w, r, err)
		return
	}

	user, err := h.users.UpdateRole(r.Context(), callerOf(r), id, &req)
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.RespondData(w, http.StatusOK, user)
}
