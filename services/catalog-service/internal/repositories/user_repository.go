package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultUserPageSize = 20
	activeUserWindow    = 7 * 24 * time.Hour
	newUserWindow       = 30 * 24 * time.Hour
)

var userListSpec = listSpec{
	table: "users",
	sortColumns: map[string]string{
		"created_at": "created_at",
		// never-active users sort as the least recently active
		"last_active_at": "COALESCE(last_active_at, '-infinity')",
		"username":       "username",
		"email":          "email",
		"first_name":     "first_name",
		"last_name":      "last_name",
	},
	defaultSort:     models.Sort{Field: "created_at", Direction: models.SortDesc},
	defaultPageSize: defaultUserPageSize,
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository over gorm
func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{
		db: db,
	}
}

// GetByID retrieves a user by its ID
func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// ResolveRole returns the role currently stored for a user
func (r *userRepository) ResolveRole(ctx context.Context, userID int) (principal.Role, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("role").Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.NotFound("User not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve user role: %w", err)
	}
	return user.Role, nil
}

func (r *userRepository) filtered(ctx context.Context, filter *models.UserFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter == nil {
		return q
	}
	switch len(filter.Roles) {
	case 0:
	case 1:
		q = q.Where("role = ?", string(filter.Roles[0]))
	default:
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		q = q.Where("role IN ?", roles)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.Where("(username ILIKE ? OR email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?)",
			pattern, pattern, pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.LastActiveAfter != nil {
		q = q.Where("last_active_at >= ?", *filter.LastActiveAfter)
	}
	if filter.HasPhone != nil {
		q = q.Where(presence("phone", *filter.HasPhone))
	}
	if filter.HasAvatar != nil {
		q = q.Where(presence("avatar_url", *filter.HasAvatar))
	}
	return q
}

// presence matches rows whose text column is set, or unset when present is false
func presence(column string, present bool) string {
	if present {
		return column + " <> ''"
	}
	return column + " = ''"
}

// List retrieves one page of users matching the filter and the total size of the filtered set
//
// Unknown sort fields fall back to the newest users first.
func (r *userRepository) List(ctx context.Context, filter *models.UserFilter, sort models.Sort, page models.PageRequest) ([]models.User, int, error) {
	page = page.Normalize(defaultUserPageSize)

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := []models.User{}
	err := r.filtered(ctx, filter).
		Order(userListSpec.order(sort)).
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, int(total), nil
}

// UpdateRole changes the role of a user
func (r *userRepository) UpdateRole(ctx context.Context, id int, role principal.Role) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return fmt.Errorf("failed to update user role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// profileColumns maps the set fields of a profile patch to their columns
func profileColumns(patch *models.UpdateUserProfileRequest) map[string]any {
	columns := map[string]any{"updated_at": gorm.Expr("NOW()")}
	set := func(column string, value *string) {
		if value != nil {
			columns[column] = *value
		}
	}
	set("username", patch.Username)
	set("first_name", patch.FirstName)
	set("last_name", patch.LastName)
	set("email", patch.Email)
	set("phone", patch.Phone)
	set("avatar_url", patch.AvatarURL)
	set("bio", patch.Bio)
	return columns
}

// UpdateProfile applies a partial profile update to a user
func (r *userRepository) UpdateProfile(ctx context.Context, id int, patch *models.UpdateUserProfileRequest) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(profileColumns(patch))
	if isUniqueViolation(result.Error) {
		return apperr.Conflict("Username or email already in use")
	}
	if result.Error != nil {
		return fmt.Errorf("failed to update user profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// BulkUpdate applies one profile patch to many users and returns the number of updated users
func (r *userRepository) BulkUpdate(ctx context.Context, ids []int, patch *models.UpdateUserProfileRequest) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", ids).
		Updates(profileColumns(patch))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to bulk update users: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// Delete removes a user; their enrollments go with them
//
// Users still referenced as a course instructor cannot be deleted.
func (r *userRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if isForeignKeyViolation(result.Error) {
		return apperr.Conflict("User still instructs courses")
	}
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// EnsureUsers inserts the given users, leaving rows with an existing ID untouched
//
// The id sequence is moved past the highest ID so later inserts do not collide.
func (r *userRepository) EnsureUsers(ctx context.Context, users []models.User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&users)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected
		return tx.Exec(`SELECT setval(pg_get_serial_sequence('users', 'id'), (SELECT COALESCE(MAX(id), 1) FROM users))`).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed users: %w", err)
	}
	return int(inserted), nil
}

type roleCount struct {
	Role  principal.Role
	Count int
}

type activityCount struct {
	Active int
	Recent int
}

// Stats counts users by role, along with recently active and recently created users
func (r *userRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	var rows []roleCount
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	now := time.Now()
	var activity activityCount
	err = r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("COUNT(*) FILTER (WHERE last_active_at >= ?) AS active, COUNT(*) FILTER (WHERE created_at >= ?) AS recent",
			now.Add(-activeUserWindow), now.Add(-newUserWindow)).
		Scan(&activity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user activity: %w", err)
	}

	stats := &models.UserStats{ActiveUsers: activity.Active, NewUsers: activity.Recent}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Role {
		case principal.RoleStudent:
			stats.Students = row.Count
		case principal.RoleInstructor:
			stats.Instructors = row.Count
		case principal.RoleAdmin:
			stats.Admins = row.Count
		}
	}
	return stats, nil
}

// CountEnrollments returns the number of courses a user is enrolled in
func (r *userRepository) CountEnrollments(ctx context.Context, userID int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return int(count), nil
}

// CountCoursesTeaching returns the number of courses a user is the instructor of
func (r *userRepository) CountCoursesTeaching(ctx context.Context, userID int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("courses").Where("instructor_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count taught courses: %w", err)
	}
	return int(count), nil
}

func (r *userRepository) learners(ctx context.Context, courseID int) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("enrollments e").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("e.course_id = ?", courseID)
}

// LearnersOfCourse retrieves one page of the users enrolled in a course, most recent first
func (r *userRepository) LearnersOfCourse(ctx context.Context, courseID int, page models.PageRequest) ([]models.Learner, int, error) {
	page = page.Normalize(defaultUserPageSize)

	var total int64
	if err := r.learners(ctx, courseID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count learners: %w", err)
	}

	learners := []models.Learner{}
	err := r.learners(ctx, courseID).
		Select("e.user_id, u.username, u.first_name, u.last_name, u.email, e.enrolled_at, e.progress, e.completed").
		Order("e.enrolled_at DESC, e.id DESC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Scan(&learners).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list learners: %w", err)
	}

	return learners, int(total), nil
}
