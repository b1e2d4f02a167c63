package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		req      PageRequest
		expected PageRequest
	}{
		{name: "defaults", req: PageRequest{}, expected: PageRequest{Page: 1, PageSize: 10}},
		{name: "negative page", req: PageRequest{Page: -3, PageSize: 5}, expected: PageRequest{Page: 1, PageSize: 5}},
		{name: "capped size", req: PageRequest{Page: 2, PageSize: 1000}, expected: PageRequest{Page: 2, PageSize: MaxPageSize}},
		{name: "untouched", req: PageRequest{Page: 4, PageSize: 25}, expected: PageRequest{Page: 4, PageSize: 25}},
		{name: "capped page", req: PageRequest{Page: math.MaxInt, PageSize: 50}, expected: PageRequest{Page: MaxPage, PageSize: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.Normalize(10))
		})
	}
}

func TestPageRequest_Offset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, PageRequest{Page: 3, PageSize: 10}.Offset())

	huge := PageRequest{Page: math.MaxInt, PageSize: 1000}.Normalize(10)
	assert.Equal(t, (MaxPage-1)*MaxPageSize, huge.Offset())
	assert.Positive(t, huge.Offset())
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name         string
		total        int
		req          PageRequest
		expectedPage int
		hasNext      bool
		hasPrevious  bool
	}{
		{name: "exact multiple", total: 20, req: PageRequest{Page: 1, PageSize: 10}, expectedPage: 2, hasNext: true},
		{name: "remainder", total: 21, req: PageRequest{Page: 3, PageSize: 10}, expectedPage: 3, hasPrevious: true},
		{name: "empty", total: 0, req: PageRequest{Page: 1, PageSize: 10}, expectedPage: 0},
		{name: "beyond last page", total: 5, req: PageRequest{Page: 4, PageSize: 10}, expectedPage: 1, hasPrevious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewPage[int](nil, tt.total, tt.req)

			assert.NotNil(t, page.Items)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.expectedPage, page.TotalPages)
			assert.Equal(t, tt.hasNext, page.HasNextPage)
			assert.Equal(t, tt.hasPrevious, page.HasPreviousPage)
		})
	}
}

func TestContentType_IsValid(t *testing.T) {
	assert.True(t, ContentTypeCodingTest.IsValid())
	assert.False(t, ContentType("hologram").IsValid())
}

func TestUpdateRequests_IsEmpty(t *testing.T) {
	title := "New"
	assert.True(t, (&UpdateCourseRequest{}).IsEmpty())
	assert.False(t, (&UpdateCourseRequest{Title: &title}).IsEmpty())
	assert.False(t, (&UpdateCourseRequest{Tags: []string{}}).IsEmpty())
	assert.True(t, (&UpdateChapterRequest{}).IsEmpty())
	assert.False(t, (&UpdateChapterRequest{Title: &title}).IsEmpty())
	assert.True(t, (&UpdateLessonRequest{}).IsEmpty())
	assert.False(t, (&UpdateLessonRequest{Title: &title}).IsEmpty())
}
