package models

import "math"

const (
	// MaxPageSize caps the page size of every listing
	MaxPageSize = 100
	// MaxPage caps the page number so the row offset stays in range
	MaxPage = 1_000_000
)

// SortDirection is the direction of a sort
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is a single sort key
type Sort struct {
	Field     string
	Direction SortDirection
}

// PageRequest is the requested page window, one-based
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to a valid window
//
// Pages below one become one and pages above MaxPage are capped.
// Missing sizes take defaultSize, sizes above MaxPageSize are capped.
func (p PageRequest) Normalize(defaultSize int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows skipped before the page
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a listing together with totals over the whole filtered set
type Page[T any] struct {
	Items           []T  `json:"items"`
	Total           int  `json:"total"`
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPage builds a page from the rows of the window and the total count
func NewPage[T any](items []T, total int, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if req.PageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}
	return &Page[T]{
		Items:           items,
		Total:           total,
		Page:            req.Page,
		PageSize:        req.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     req.Page < totalPages,
		HasPreviousPage: req.Page > 1,
	}
}

// ReorderItem is the new position of one sibling
type ReorderItem struct {
	ID         int `json:"id"`
	OrderIndex int `json:"orderIndex"`
}

// ReorderRequest is a full reorder of the children of one parent
//
// ExpectedVersion, when set, must match the curriculum version of the course.
type ReorderRequest struct {
	Items           []ReorderItem `json:"items"`
	ExpectedVersion *int          `json:"expectedVersion,omitempty"`
}

// ReorderResult is the outcome of a reorder
type ReorderResult struct {
	Updated           int `json:"updated"`
	CurriculumVersion int `json:"curriculumVersion"`
}

// BulkIDsRequest names the rows of a bulk operation
type BulkIDsRequest struct {
	IDs []int `json:"ids"`
}

// BulkUpdateCoursesRequest applies one patch to many courses
type BulkUpdateCoursesRequest struct {
	IDs   []int               `json:"ids"`
	Patch UpdateCourseRequest `json:"patch"`
}

// BulkUpdateChaptersRequest applies one patch to many chapters
type BulkUpdateChaptersRequest struct {
	IDs   []int                `json:"ids"`
	Patch UpdateChapterRequest `json:"patch"`
}

// RepairResult reports how many rows an order repair rewrote
type RepairResult struct {
	ChaptersUpdated int `json:"chaptersUpdated"`
	LessonsUpdated  int `json:"lessonsUpdated"`
}
