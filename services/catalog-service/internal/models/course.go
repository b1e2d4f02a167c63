package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseStatus represents the publication status of a course
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// CourseVisibility represents who can see a course
type CourseVisibility string

const (
	CourseVisibilityPublic   CourseVisibility = "public"
	CourseVisibilityPrivate  CourseVisibility = "private"
	CourseVisibilityUnlisted CourseVisibility = "unlisted"
)

// CourseLevel represents the difficulty level of a course
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
	CourseLevelAllLevels    CourseLevel = "all_levels"
)

// Course represents a course in the catalog
type Course struct {
	ID                int              `json:"id"`
	Title             string           `json:"title"`
	Slug              string           `json:"slug"`
	Description       string           `json:"description"`
	Tagline           string           `json:"tagline"`
	Status            CourseStatus     `json:"status"`
	Visibility        CourseVisibility `json:"visibility"`
	Level             CourseLevel      `json:"level"`
	Languages         pq.StringArray   `json:"languages"`
	Tags              pq.StringArray   `json:"tags"`
	CategoryID        *int             `json:"categoryId,omitempty"`
	Featured          bool             `json:"featured"`
	Rating            float64          `json:"rating"`
	EnrollmentsCount  int              `json:"enrollmentsCount"`
	ReviewsCount      int              `json:"reviewsCount"`
	InstructorID      int              `json:"instructorId"`
	UpdatedBy         *int             `json:"updatedBy,omitempty"`
	CurriculumVersion int              `json:"curriculumVersion"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// CourseWithChapters is a course together with its ordered chapters
type CourseWithChapters struct {
	Course
	Chapters []Chapter `json:"chapters"`
}

// CreateCourseRequest represents a request to create a course
type CreateCourseRequest struct {
	Title        string           `json:"title"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	Tagline      string           `json:"tagline"`
	Status       CourseStatus     `json:"status,omitempty"`
	Visibility   CourseVisibility `json:"visibility,omitempty"`
	Level        CourseLevel      `json:"level,omitempty"`
	Languages    []string         `json:"languages,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	CategoryID   *int             `json:"categoryId,omitempty"`
	Featured     bool             `json:"featured"`
	InstructorID int              `json:"instructorId,omitempty"`
}

// UpdateCourseRequest represents a partial update of a course
//
// Nil fields are left untouched.
type UpdateCourseRequest struct {
	Title        *string           `json:"title,omitempty"`
	Slug         *string           `json:"slug,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Tagline      *string           `json:"tagline,omitempty"`
	Status       *CourseStatus     `json:"status,omitempty"`
	Visibility   *CourseVisibility `json:"visibility,omitempty"`
	Level        *CourseLevel      `json:"level,omitempty"`
	Languages    []string          `json:"languages,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CategoryID   *int              `json:"categoryId,omitempty"`
	Featured     *bool             `json:"featured,omitempty"`
	Rating       *float64          `json:"rating,omitempty"`
	InstructorID *int              `json:"instructorId,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateCourseRequest) IsEmpty() bool {
	return r.Title == nil && r.Slug == nil && r.Description == nil && r.Tagline == nil &&
		r.Status == nil && r.Visibility == nil && r.Level == nil && r.Languages == nil &&
		r.Tags == nil && r.CategoryID == nil && r.Featured == nil && r.Rating == nil &&
		r.InstructorID == nil
}

// CourseFilter holds the optional predicates of a course listing
type CourseFilter struct {
	CourseID       *int
	InstructorID   *int
	CategoryID     *int
	Status         *CourseStatus
	Visibility     *CourseVisibility
	Level          *CourseLevel
	Featured       *bool
	Languages      []string
	Tags           []string
	Search         string
	MinRating      *float64
	MaxRating      *float64
	MinEnrollments *int
	MaxEnrollments *int
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	UpdatedAfter   *time.Time
	UpdatedBefore  *time.Time
}

// CourseStats summarises the catalog for administrators
type CourseStats struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"byStatus"`
	Featured         int            `json:"featured"`
	AverageRating    float64        `json:"averageRating"`
	TotalEnrollments int            `json:"totalEnrollments"`
}
