package models

import (
	"slices"
	"time"
)

// ContentType represents the kind of content a lesson delivers
type ContentType string

const (
	ContentTypeVideo      ContentType = "video"
	ContentTypeAudio      ContentType = "audio"
	ContentTypePDF        ContentType = "pdf"
	ContentTypeText       ContentType = "text"
	ContentTypeImage      ContentType = "image"
	ContentTypePPT        ContentType = "ppt"
	ContentTypeFile       ContentType = "file"
	ContentTypeLink       ContentType = "link"
	ContentTypeIframe     ContentType = "iframe"
	ContentTypeQuiz       ContentType = "quiz"
	ContentTypeAssignment ContentType = "assignment"
	ContentTypeCodingTest ContentType = "coding_test"
	ContentTypeForm       ContentType = "form"
	ContentTypeSCORM      ContentType = "scorm"
	ContentTypeLiveClass  ContentType = "live_class"
	ContentTypeLiveTest   ContentType = "live_test"
	ContentTypeHeading    ContentType = "heading"
)

// ContentTypes lists every supported content type
var ContentTypes = []ContentType{
	ContentTypeVideo, ContentTypeAudio, ContentTypePDF, ContentTypeText, ContentTypeImage,
	ContentTypePPT, ContentTypeFile, ContentTypeLink, ContentTypeIframe, ContentTypeQuiz,
	ContentTypeAssignment, ContentTypeCodingTest, ContentTypeForm, ContentTypeSCORM,
	ContentTypeLiveClass, ContentTypeLiveTest, ContentTypeHeading,
}

// IsValid reports whether t is a supported content type
func (t ContentType) IsValid() bool {
	return slices.Contains(ContentTypes, t)
}

// Lesson represents a unit of content inside a chapter
type Lesson struct {
	ID          int         `json:"id"`
	ChapterID   int         `json:"chapterId"`
	Title       string      `json:"title"`
	ContentType ContentType `json:"contentType"`
	ContentURL  string      `json:"contentUrl,omitempty"`
	ContentBody string      `json:"contentBody,omitempty"`
	OrderIndex  int         `json:"orderIndex"`
	IsPreview   bool        `json:"isPreview"`
	Duration    int         `json:"duration"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CreateLessonRequest represents a request to create a lesson
type CreateLessonRequest struct {
	ChapterID   int         `json:"chapterId"`
	Title       string      `json:"title"`
	ContentType ContentType `json:"contentType"`
	ContentURL  string      `json:"contentUrl"`
	ContentBody string      `json:"contentBody"`
	OrderIndex  *int        `json:"orderIndex"`
	IsPreview   bool        `json:"isPreview"`
	Duration    int         `json:"duration"`
}

// UpdateLessonRequest represents a partial update of a lesson
type UpdateLessonRequest struct {
	Title       *string      `json:"title,omitempty"`
	ContentType *ContentType `json:"contentType,omitempty"`
	ContentURL  *string      `json:"contentUrl,omitempty"`
	ContentBody *string      `json:"contentBody,omitempty"`
	OrderIndex  *int         `json:"orderIndex,omitempty"`
	IsPreview   *bool        `json:"isPreview,omitempty"`
	Duration    *int         `json:"duration,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateLessonRequest) IsEmpty() bool {
	return r.Title == nil && r.ContentType == nil && r.ContentURL == nil && r.ContentBody == nil &&
		r.OrderIndex == nil && r.IsPreview == nil && r.Duration == nil
}

// LessonFilter holds the optional predicates of a lesson listing
type LessonFilter struct {
	ChapterID   *int
	ContentType *ContentType
	IsPreview   *bool
	Search      string
}
