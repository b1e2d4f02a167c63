package services

import (
	"context"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

const notCourseOwner = "you do not have rights to manage this course"

// courseGate decides whether a principal may author a course
//
// Admins may author every course, instructors only the courses they teach.
type courseGate struct {
	courses CourseRepository
	logger  *zap.Logger
}

// authorizeLoaded checks access to a course that was already read
func (g courseGate) authorizeLoaded(p principal.Principal, course *models.Course) error {
	if err := principal.Require(p, authorRoles...); err != nil {
		return err
	}
	if p.IsAdmin() || course.InstructorID == p.UserID {
		return nil
	}
	return apperr.Forbidden(notCourseOwner)
}

// authorize checks access to a course by ID
func (g courseGate) authorize(ctx context.Context, p principal.Principal, courseID int) error {
	if err := principal.Require(p, authorRoles...); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	owns, err := g.courses.CheckOwnership(ctx, courseID, p.UserID)
	if err != nil {
		return storeError(g.logger, apperr.KindQueryFailed, "Failed to fetch course", err, zap.Int("course_id", courseID))
	}
	if !owns {
		return apperr.Forbidden(notCourseOwner)
	}
	return nil
}

// authorizeAll checks access to every listed course
func (g courseGate) authorizeAll(ctx context.Context, p principal.Principal, courseIDs []int) error {
	if err := principal.Require(p, authorRoles...); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	for _, id := range uniqueIDs(courseIDs) {
		if err := g.authorize(ctx, p, id); err != nil {
			return err
		}
	}
	return nil
}

// load reads a course and checks access to it
func (g courseGate) load(ctx context.Context, p principal.Principal, courseID int) (*models.Course, error) {
	if err := principal.Require(p, authorRoles...); err != nil {
		return nil, err
	}
	course, err := g.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, storeError(g.logger, apperr.KindQueryFailed, "Failed to fetch course", err, zap.Int("course_id", courseID))
	}
	if err := g.authorizeLoaded(p, course); err != nil {
		return nil, err
	}
	return course, nil
}
