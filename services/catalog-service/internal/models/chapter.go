package models

import "time"

// Chapter represents an ordered section of a course
type Chapter struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OrderIndex  int       `json:"orderIndex"`
	IsFree      bool      `json:"isFree"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Lessons     []Lesson  `json:"lessons,omitempty"`
}

// ChapterRef identifies a chapter together with its course
type ChapterRef struct {
	ID       int `json:"id"`
	CourseID int `json:"courseId"`
}

// CreateChapterRequest represents a request to create a chapter
type CreateChapterRequest struct {
	CourseID    int    `json:"courseId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"orderIndex"`
	IsFree      bool   `json:"isFree"`
}

// UpdateChapterRequest represents a partial update of a chapter
type UpdateChapterRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	OrderIndex  *int    `json:"orderIndex,omitempty"`
	IsFree      *bool   `json:"isFree,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateChapterRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.OrderIndex == nil && r.IsFree == nil
}

// ChapterFilter holds the optional predicates of a chapter listing
type ChapterFilter struct {
	ChapterID     *int
	CourseID      *int
	IsFree        *bool
	Search        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
}

// DuplicateChapterResult is the outcome of a chapter duplication
//
// LessonsPending is set when the lesson copy failed and was queued for retry.
type DuplicateChapterResult struct {
	Chapter        Chapter `json:"chapter"`
	LessonsCopied  int     `json:"lessonsCopied"`
	LessonsPending bool    `json:"lessonsPending"`
}

// ChapterStats summarises the chapters of a course
type ChapterStats struct {
	TotalChapters            int     `json:"totalChapters"`
	FreeChapters             int     `json:"freeChapters"`
	TotalLessons             int     `json:"totalLessons"`
	AverageLessonsPerChapter float64 `json:"averageLessonsPerChapter"`
}
