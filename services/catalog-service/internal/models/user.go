package models

import (
	"time"

	"github.com/coursecraft/backend/libs/auth/principal"
	"gorm.io/datatypes"
)

// User is a platform account as seen by the catalog
type User struct {
	ID           int               `gorm:"primaryKey;column:id" json:"id"`
	Username     string            `gorm:"column:username" json:"username"`
	FirstName    string            `gorm:"column:first_name" json:"firstName"`
	LastName     string            `gorm:"column:last_name" json:"lastName"`
	Email        string            `gorm:"column:email" json:"email"`
	Phone        string            `gorm:"column:phone" json:"phone,omitempty"`
	AvatarURL    string            `gorm:"column:avatar_url" json:"avatarUrl,omitempty"`
	Role         principal.Role    `gorm:"column:role" json:"role"`
	Bio          string            `gorm:"column:bio" json:"bio,omitempty"`
	Preferences  datatypes.JSONMap `gorm:"column:preferences" json:"preferences,omitempty"`
	LastActiveAt *time.Time        `gorm:"column:last_active_at" json:"lastActiveAt,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time         `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName returns the table backing User
func (User) TableName() string {
	return "users"
}

// Enrollment links a learner to a course
type Enrollment struct {
	ID         int       `gorm:"primaryKey;column:id" json:"id"`
	UserID     int       `gorm:"column:user_id" json:"userId"`
	CourseID   int       `gorm:"column:course_id" json:"courseId"`
	EnrolledAt time.Time `gorm:"column:enrolled_at" json:"enrolledAt"`
	Progress   int       `gorm:"column:progress" json:"progress"`
	Completed  bool      `gorm:"column:completed" json:"completed"`
}

// TableName returns the table backing Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}

// UserFilter holds the optional predicates of a user listing
//
// HasPhone and HasAvatar match on a non-empty column when true and an empty one when false.
type UserFilter struct {
	Roles           []principal.Role
	Search          string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastActiveAfter *time.Time
	HasPhone        *bool
	HasAvatar       *bool
}

// UserWithStats is a user together with their catalog activity
type UserWithStats struct {
	User
	EnrollmentsCount int `json:"enrollmentsCount"`
	CoursesTeaching  int `json:"coursesTeaching"`
}

// Learner is an enrolled user of a course
type Learner struct {
	UserID     int       `gorm:"column:user_id" json:"userId"`
	Username   string    `gorm:"column:username" json:"username"`
	FirstName  string    `gorm:"column:first_name" json:"firstName"`
	LastName   string    `gorm:"column:last_name" json:"lastName"`
	Email      string    `gorm:"column:email" json:"email"`
	EnrolledAt time.Time `gorm:"column:enrolled_at" json:"enrolledAt"`
	Progress   int       `gorm:"column:progress" json:"progress"`
	Completed  bool      `gorm:"column:completed" json:"completed"`
}

// UpdateRoleRequest changes the role of a user
type UpdateRoleRequest struct {
	Role principal.Role `json:"role"`
}

// UpdateUserProfileRequest is a partial update of a user profile
type UpdateUserProfileRequest struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateUserProfileRequest) IsEmpty() bool {
	return r.Username == nil && r.FirstName == nil && r.LastName == nil && r.Email == nil &&
		r.Phone == nil && r.AvatarURL == nil && r.Bio == nil
}

// BulkUpdateUsersRequest applies one profile patch to many users
type BulkUpdateUsersRequest struct {
	IDs   []int                    `json:"ids"`
	Patch UpdateUserProfileRequest `json:"patch"`
}

// UserStats counts users by role and recent activity
//
// ActiveUsers were active within the last seven days, NewUsers signed up within the last thirty.
type UserStats struct {
	Total       int `json:"total"`
	Students    int `json:"students"`
	Instructors int `json:"instructors"`
	Admins      int `json:"admins"`
	ActiveUsers int `json:"activeUsers"`
	NewUsers    int `json:"newUsers"`
}
