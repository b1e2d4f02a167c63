package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"go.uber.org/zap"
)

// Invalidator drops cached views of the catalog
type Invalidator interface {
	// Invalidate drops the cached views of the given paths and announces them to subscribers
	//
	// "ctx" is the context for the request.
	// "paths" are the page paths whose views are stale.
	//
	// Returns an error if any.
	Invalidate(ctx context.Context, paths ...string) error
}

// PageCache stores rendered views keyed by page path
type PageCache interface {
	// GetJSON loads the cached view of a path into dest
	//
	// "ctx" is the context for the request.
	// "path" is the page path.
	// "dest" is the value the cached JSON is decoded into.
	//
	// Returns true when a view was cached and an error if any.
	GetJSON(ctx context.Context, path string, dest any) (bool, error)
	// SetJSON caches the view of a path
	//
	// "ctx" is the context for the request.
	// "path" is the page path.
	// "value" is the view to cache.
	// "ttl" is how long the view stays cached.
	//
	// Returns an error if any.
	SetJSON(ctx context.Context, path string, value any, ttl time.Duration) error
}

// CopyEnqueuer queues lesson copies that could not complete inline
type CopyEnqueuer interface {
	// EnqueueCopyLessons queues the copy of the lessons of one chapter into another
	//
	// "ctx" is the context for the request.
	// "sourceChapterID" is the ID of the chapter to copy from.
	// "targetChapterID" is the ID of the chapter to copy into.
	//
	// Returns an error if any.
	EnqueueCopyLessons(ctx context.Context, sourceChapterID, targetChapterID int) error
}

var (
	authorRoles = []principal.Role{principal.RoleInstructor, principal.RoleAdmin}
	adminRoles  = []principal.Role{principal.RoleAdmin}
)

const dashboardCoursesPath = "/dashboard/course"

func dashboardCoursePath(courseID int) string {
	return fmt.Sprintf("/dashboard/course/%d", courseID)
}

func publicCoursePath(courseID int) string {
	return fmt.Sprintf("/course/%d", courseID)
}

// coursePaths returns the dashboard and public page of every distinct course
func coursePaths(courseIDs ...int) []string {
	seen := make(map[int]struct{}, len(courseIDs))
	paths := make([]string, 0, 2*len(courseIDs))
	for _, id := range courseIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		paths = append(paths, dashboardCoursePath(id), publicCoursePath(id))
	}
	return paths
}

// invalidator invalidates course views, logging failures instead of returning them
type invalidator struct {
	sink   Invalidator
	logger *zap.Logger
}

// courses drops the views of the courses, and the dashboard listing when withList is set
func (i invalidator) courses(ctx context.Context, withList bool, courseIDs ...int) {
	paths := coursePaths(courseIDs...)
	if withList {
		paths = append([]string{dashboardCoursesPath}, paths...)
	}
	if len(paths) == 0 || i.sink == nil {
		return
	}
	if err := i.sink.Invalidate(context.WithoutCancel(ctx), paths...); err != nil {
		i.logger.Warn("failed to invalidate cached views", zap.Strings("paths", paths), zap.Error(err))
	}
}

// storeError logs a store failure and converts it into a generic error of the given kind
//
// Errors that already carry a kind pass through unchanged.
func storeError(logger *zap.Logger, kind apperr.Kind, message string, err error, fields ...zap.Field) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	logger.Error(strings.ToLower(message), append(fields, zap.Error(err))...)
	return apperr.Wrap(kind, message, err)
}

// uniqueIDs returns ids without duplicates, keeping the first occurrence
func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// validateIDs checks a bulk id list and returns it without duplicates
func validateIDs(ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("ids are required")
	}
	for _, id := range ids {
		if id <= 0 {
			return nil, apperr.Validation("invalid id %d", id)
		}
	}
	return uniqueIDs(ids), nil
}
