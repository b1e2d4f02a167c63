package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/go-chi/chi/v5"
)

// BulkResponse is the body of a bulk mutation
type BulkResponse struct {
	Success      bool   `json:"success"`
	UpdatedCount *int   `json:"updatedCount,omitempty"`
	DeletedCount *int   `json:"deletedCount,omitempty"`
	Error        string `json:"error,omitempty"`
}

// callerOf returns the principal attached by the auth middleware, anonymous when there is none
func callerOf(r *http.Request) principal.Principal {
	return principal.FromContext(r.Context())
}

// pathID parses the {id} URL parameter
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

// pageRequest reads page and pageSize, leaving invalid values to the defaults
func pageRequest(q url.Values) models.PageRequest {
	var page models.PageRequest
	if v, ok := queryInt(q, "page"); ok {
		page.Page = *v
	}
	if v, ok := queryInt(q, "pageSize"); ok {
		page.PageSize = *v
	}
	return page
}

// sortRequest reads sortBy and sortOrder; unknown fields fall back to the listing default
func sortRequest(q url.Values) models.Sort {
	sort := models.Sort{Field: strings.TrimSpace(q.Get("sortBy"))}
	switch strings.ToLower(q.Get("sortOrder")) {
	case string(models.SortAsc):
		sort.Direction = models.SortAsc
	case string(models.SortDesc):
		sort.Direction = models.SortDesc
	}
	return sort
}

func queryInt(q url.Values, key string) (*int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return nil, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func queryFloat(q url.Values, key string) *float64 {
	raw := q.Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryBool(q url.Values, key string) *bool {
	raw := q.Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryTime accepts RFC 3339 timestamps and plain dates
func queryTime(q url.Values, key string) *time.Time {
	raw := q.Get(key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func queryList(q url.Values, key string) []string {
	var values []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func optionalID(q url.Values, key string) *int {
	if v, ok := queryInt(q, key); ok && *v > 0 {
		return v
	}
	return nil
}

func optionalEnum[T ~string](q url.Values, key string) *T {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

// courseFilter reads the course listing predicates
func courseFilter(q url.Values) *models.CourseFilter {
	filter := &models.CourseFilter{
		CourseID:      optionalID(q, "courseId"),
		InstructorID:  optionalID(q, "instructorId"),
		CategoryID:    optionalID(q, "categoryId"),
		Status:        optionalEnum[models.CourseStatus](q, "status"),
		Visibility:    optionalEnum[models.CourseVisibility](q, "visibility"),
		Level:         optionalEnum[models.CourseLevel](q, "level"),
		Featured:      queryBool(q, "featured"),
		Languages:     queryList(q, "languages"),
		Tags:          queryList(q, "tags"),
		Search:        q.Get("search"),
		MinRating:     queryFloat(q, "minRating"),
		MaxRating:     queryFloat(q, "maxRating"),
		CreatedAfter:  queryTime(q, "createdAfter"),
		CreatedBefore: queryTime(q, "createdBefore"),
		UpdatedAfter:  queryTime(q, "updatedAfter"),
		UpdatedBefore: queryTime(q, "updatedBefore"),
	}
	filter.MinEnrollments, _ = queryInt(q, "minEnrollments")
	filter.MaxEnrollments, _ = queryInt(q, "maxEnrollments")
	return filter
}

// chapterFilter reads the chapter listing predicates
func chapterFilter(q url.Values) *models.ChapterFilter {
	return &models.ChapterFilter{
		ChapterID:     optionalID(q, "chapterId"),
		CourseID:      optionalID(q, "courseId"),
		IsFree:        queryBool(q, "isFree"),
		Search:        q.Get("search"),
		CreatedAfter:  queryTime(q, "createdAfter"),
		CreatedBefore: queryTime(q, "createdBefore"),
		UpdatedAfter:  queryTime(q, "updatedAfter"),
		UpdatedBefore: queryTime(q, "updatedBefore"),
	}
}

// lessonFilter reads the lesson listing predicates
func lessonFilter(q url.Values) *models.LessonFilter {
	return &models.LessonFilter{
		ChapterID:   optionalID(q, "chapterId"),
		ContentType: optionalEnum[models.ContentType](q, "contentType"),
		IsPreview:   queryBool(q, "isPreview"),
		Search:      q.Get("search"),
	}
}

// userFilter reads the user directory predicates; role may list several roles
func userFilter(q url.Values) *models.UserFilter {
	filter := &models.UserFilter{
		Search:          q.Get("search"),
		CreatedAfter:    queryTime(q, "createdAfter"),
		CreatedBefore:   queryTime(q, "createdBefore"),
		LastActiveAfter: queryTime(q, "lastActiveAfter"),
		HasPhone:        queryBool(q, "hasPhone"),
		HasAvatar:       queryBool(q, "hasAvatar"),
	}
	for _, role := range queryList(q, "role") {
		filter.Roles = append(filter.Roles, principal.Role(role))
	}
	return filter
}
