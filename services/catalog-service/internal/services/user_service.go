package services

import (
	"context"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const userDefaultPageSize = 20

type userService struct {
	userRepo UserRepository
	gate     courseGate
	logger   *zap.Logger
}

// NewUserService creates a new user directory service
func NewUserService(userRepo UserRepository, courseRepo CourseRepository, logger *zap.Logger) *userService {
	return &userService{
		userRepo: userRepo,
		gate:     courseGate{courses: courseRepo, logger: logger},
		logger:   logger,
	}
}

// List retrieves a page of users
func (s *userService) List(ctx context.Context, p principal.Principal, filter *models.UserFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.User], error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.UserFilter{}
	}
	for _, role := range filter.Roles {
		if !role.IsValid() {
			return nil, apperr.Validation("invalid role %q", role)
		}
	}

	page = page.Normalize(userDefaultPageSize)
	users, total, err := s.userRepo.List(ctx, filter, sort, page)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch users", err)
	}
	return models.NewPage(users, total, page), nil
}

// Get retrieves a user together with their enrollment and teaching counts
func (s *userService) Get(ctx context.Context, p principal.Principal, id int) (*models.UserWithStats, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return nil, err
	}

	var (
		user        *models.User
		enrollments int
		teaching    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.userRepo.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		enrollments, err = s.userRepo.CountEnrollments(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		teaching, err = s.userRepo.CountCoursesTeaching(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch user", err, zap.Int("user_id", id))
	}

	return &models.UserWithStats{User: *user, EnrollmentsCount: enrollments, CoursesTeaching: teaching}, nil
}

// UpdateRole changes the role of a user
//
// Admins cannot change their own role.
func (s *userService) UpdateRole(ctx context.Context, p principal.Principal, id int, req *models.UpdateRoleRequest) (*models.User, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return nil, err
	}
	if id == p.UserID {
		return nil, apperr.Validation("you cannot change your own role")
	}
	if !req.Role.IsValid() {
		return nil, apperr.Validation("invalid role")
	}

	if err := s.userRepo.UpdateRole(ctx, id, req.Role); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to update user role", err, zap.Int("user_id", id))
	}
	s.logger.Info("user role updated", zap.Int("user_id", id), zap.String("role", string(req.Role)), zap.Int("by", p.UserID))

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch user", err, zap.Int("user_id", id))
	}
	return user, nil
}

// validateProfile checks the fields a profile patch sets
func validateProfile(patch *models.UpdateUserProfileRequest) error {
	if patch.IsEmpty() {
		return apperr.Validation("at least one field must be provided")
	}
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return apperr.Validation("username cannot be empty")
	}
	if patch.Email != nil && !strings.Contains(*patch.Email, "@") {
		return apperr.Validation("invalid email")
	}
	return nil
}

// UpdateProfile applies a partial profile update to a user
func (s *userService) UpdateProfile(ctx context.Context, p principal.Principal, id int, req *models.UpdateUserProfileRequest) (*models.User, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return nil, err
	}
	if err := validateProfile(req); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateProfile(ctx, id, req); err != nil {
		return nil, storeError(s.logger, apperr.KindWriteFailed, "Failed to update user profile", err, zap.Int("user_id", id))
	}
	s.logger.Info("user profile updated", zap.Int("user_id", id), zap.Int("by", p.UserID))

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch user", err, zap.Int("user_id", id))
	}
	return user, nil
}

// BulkUpdate applies one profile patch to many users and returns the number of updated users
//
// Usernames and emails are unique per user and cannot be set in bulk.
func (s *userService) BulkUpdate(ctx context.Context, p principal.Principal, req *models.BulkUpdateUsersRequest) (int, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return 0, err
	}
	ids, err := validateIDs(req.IDs)
	if err != nil {
		return 0, err
	}
	patch := &req.Patch
	if patch.Username != nil || patch.Email != nil {
		return 0, apperr.Validation("username and email cannot be updated in bulk")
	}
	if err := validateProfile(patch); err != nil {
		return 0, err
	}

	updated, err := s.userRepo.BulkUpdate(ctx, ids, patch)
	if err != nil {
		return 0, storeError(s.logger, apperr.KindWriteFailed, "Failed to update users", err, zap.Ints("ids", ids))
	}
	return updated, nil
}

// Delete removes a user
//
// Admins cannot delete their own account.
func (s *userService) Delete(ctx context.Context, p principal.Principal, id int) error {
	if err := principal.Require(p, adminRoles...); err != nil {
		return err
	}
	if id == p.UserID {
		return apperr.Validation("you cannot delete your own account")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return storeError(s.logger, apperr.KindWriteFailed, "Failed to delete user", err, zap.Int("user_id", id))
	}
	s.logger.Info("user deleted", zap.Int("user_id", id), zap.Int("by", p.UserID))
	return nil
}

// Stats counts users by role and recent activity
func (s *userService) Stats(ctx context.Context, p principal.Principal) (*models.UserStats, error) {
	if err := principal.Require(p, adminRoles...); err != nil {
		return nil, err
	}
	stats, err := s.userRepo.Stats(ctx)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch user stats", err)
	}
	return stats, nil
}

// LearnersOfCourse retrieves a page of the learners enrolled in a course
func (s *userService) LearnersOfCourse(ctx context.Context, p principal.Principal, courseID int, page models.PageRequest) (*models.Page[models.Learner], error) {
	if err := s.gate.authorize(ctx, p, courseID); err != nil {
		return nil, err
	}

	page = page.Normalize(userDefaultPageSize)
	learners, total, err := s.userRepo.LearnersOfCourse(ctx, courseID, page)
	if err != nil {
		return nil, storeError(s.logger, apperr.KindQueryFailed, "Failed to fetch learners", err, zap.Int("course_id", courseID))
	}
	return models.NewPage(learners, total, page), nil
}
