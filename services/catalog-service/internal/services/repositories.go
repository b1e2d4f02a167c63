package services

import (
	"context"

	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
)

// CourseRepository defines methods for course data access
type CourseRepository interface {
	// GetByID retrieves a course by ID
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns the course and an error if any.
	GetByID(ctx context.Context, id int) (*models.Course, error)
	// GetBySlug retrieves a course by slug
	//
	// "ctx" is the context for the request.
	// "slug" is the slug of the course.
	//
	// Returns the course and an error if any.
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
	// List retrieves a page of courses with filtering and sorting
	//
	// "ctx" is the context for the request.
	// "filter" holds the optional predicates.
	// "sort" is the requested ordering, unknown fields fall back to the default.
	// "page" is the requested page window.
	//
	// Returns the courses of the page, the size of the filtered set and an error if any.
	List(ctx context.Context, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) ([]models.Course, int, error)
	// Featured retrieves featured published public courses
	//
	// "ctx" is the context for the request.
	// "limit" is the maximum number of courses.
	//
	// Returns a list of courses and an error if any.
	Featured(ctx context.Context, limit int) ([]models.Course, error)
	// ExistsBySlug checks if a course other than excludeID uses the slug
	//
	// "ctx" is the context for the request.
	// "slug" is the slug to look up.
	// "excludeID" is the ID of a course to ignore, 0 to check every course.
	//
	// Returns a boolean and an error if any.
	ExistsBySlug(ctx context.Context, slug string, excludeID int) (bool, error)
	// CheckOwnership checks if a course is taught by the instructor
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "instructorID" is the ID of the instructor.
	//
	// Returns a boolean and an error if any.
	CheckOwnership(ctx context.Context, id, instructorID int) (bool, error)
	// Create creates a new course
	//
	// "ctx" is the context for the request.
	// "course" is the course to create, its ID and timestamps are filled in.
	//
	// Returns an error if any.
	Create(ctx context.Context, course *models.Course) error
	// Update applies a partial update to a course
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "req" holds the fields to change.
	// "updatedBy" is the ID of the user making the change.
	//
	// Returns an error if any.
	Update(ctx context.Context, id int, req *models.UpdateCourseRequest, updatedBy int) error
	// BulkUpdate applies one patch to many courses
	//
	// "ctx" is the context for the request.
	// "ids" are the IDs of the courses.
	// "req" holds the fields to change.
	// "updatedBy" is the ID of the user making the change.
	//
	// Returns the IDs of the updated courses and an error if any.
	BulkUpdate(ctx context.Context, ids []int, req *models.UpdateCourseRequest, updatedBy int) ([]int, error)
	// Delete deletes a course with its chapters and lessons
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns an error if any.
	Delete(ctx context.Context, id int) error
	// BulkDelete deletes many courses with their chapters and lessons
	//
	// "ctx" is the context for the request.
	// "ids" are the IDs of the courses.
	//
	// Returns the IDs of the deleted courses and an error if any.
	BulkDelete(ctx context.Context, ids []int) ([]int, error)
	// BumpCurriculumVersion increments the curriculum version of a course
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "expected" is the version the caller read, nil to bump unconditionally.
	//
	// Returns the new version and an error if any.
	BumpCurriculumVersion(ctx context.Context, id int, expected *int) (int, error)
	// Stats aggregates catalog statistics
	//
	// "ctx" is the context for the request.
	//
	// Returns the statistics and an error if any.
	Stats(ctx context.Context) (*models.CourseStats, error)
	// ListWithOrderGaps finds courses whose chapters or lessons are not densely ordered
	//
	// "ctx" is the context for the request.
	//
	// Returns the IDs of the courses and an error if any.
	ListWithOrderGaps(ctx context.Context) ([]int, error)
}

// ChapterRepository defines methods for chapter data access
type ChapterRepository interface {
	// GetByID retrieves a chapter by ID
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the chapter.
	//
	// Returns the chapter and an error if any.
	GetByID(ctx context.Context, id int) (*models.Chapter, error)
	// GetByCourseID retrieves every chapter of a course, unordered
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns a list of chapters and an error if any.
	GetByCourseID(ctx context.Context, courseID int) ([]models.Chapter, error)
	// RefsByIDs resolves the course of every listed chapter that exists
	//
	// "ctx" is the context for the request.
	// "ids" are the IDs of the chapters.
	//
	// Returns the chapter refs and an error if any.
	RefsByIDs(ctx context.Context, ids []int) ([]models.ChapterRef, error)
	// List retrieves a page of chapters with filtering and sorting
	//
	// "ctx" is the context for the request.
	// "filter" holds the optional predicates.
	// "sort" is the requested ordering.
	// "page" is the requested page window.
	//
	// Returns the chapters of the page, the size of the filtered set and an error if any.
	List(ctx context.Context, filter *models.ChapterFilter, sort models.Sort, page models.PageRequest) ([]models.Chapter, int, error)
	// MaxOrderIndex returns the highest chapter order index of a course, -1 when it has no chapters
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns the index and an error if any.
	MaxOrderIndex(ctx context.Context, courseID int) (int, error)
	// Create creates a new chapter
	//
	// "ctx" is the context for the request.
	// "chapter" is the chapter to create, its ID and timestamps are filled in.
	//
	// Returns an error if any.
	Create(ctx context.Context, chapter *models.Chapter) error
	// Update applies a partial update to a chapter
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the chapter.
	// "req" holds the fields to change.
	//
	// Returns an error if any.
	Update(ctx context.Context, id int, req *models.UpdateChapterRequest) error
	// BulkUpdate applies one patch to many chapters
	//
	// "ctx" is the context for the request.
	// "ids" are the IDs of the chapters.
	// "req" holds the fields to change.
	//
	// Returns the updated chapters with their courses and an error if any.
	BulkUpdate(ctx context.Context, ids []int, req *models.UpdateChapterRequest) ([]models.ChapterRef, error)
	// Delete deletes a chapter with its lessons
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the chapter.
	//
	// Returns the ID of the course the chapter belonged to and an error if any.
	Delete(ctx context.Context, id int) (int, error)
	// BulkDelete deletes many chapters with their lessons
	//
	// "ctx" is the context for the request.
	// "ids" are the IDs of the chapters.
	//
	// Returns the deleted chapters with their courses and an error if any.
	BulkDelete(ctx context.Context, ids []int) ([]models.ChapterRef, error)
	// UpdateOrderIndex sets the order index of a chapter within its course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course the chapter must belong to.
	// "id" is the ID of the chapter.
	// "orderIndex" is the new position.
	//
	// Returns false when the chapter does not belong to the course and an error if any.
	UpdateOrderIndex(ctx context.Context, courseID, id, orderIndex int) (bool, error)
	// CompactOrder rewrites the chapter order of a course to 0..n-1
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns the number of rewritten chapters and an error if any.
	CompactOrder(ctx context.Context, courseID int) (int, error)
	// Stats aggregates chapter statistics of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns the statistics and an error if any.
	Stats(ctx context.Context, courseID int) (*models.ChapterStats, error)
}

// LessonRepository defines methods for lesson data access
type LessonRepository interface {
	// GetByID retrieves a lesson by ID
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	//
	// Returns the lesson and an error if any.
	GetByID(ctx context.Context, id int) (*models.Lesson, error)
	// GetByChapterIDs retrieves the lessons of many chapters in one query, unordered
	//
	// "ctx" is the context for the request.
	// "chapterIDs" are the IDs of the chapters.
	//
	// Returns a list of lessons and an error if any.
	GetByChapterIDs(ctx context.Context, chapterIDs []int) ([]models.Lesson, error)
	// List retrieves a page of lessons with filtering and sorting
	//
	// "ctx" is the context for the request.
	// "filter" holds the optional predicates.
	// "sort" is the requested ordering.
	// "page" is the requested page window.
	//
	// Returns the lessons of the page, the size of the filtered set and an error if any.
	List(ctx context.Context, filter *models.LessonFilter, sort models.Sort, page models.PageRequest) ([]models.Lesson, int, error)
	// CountByChapter returns the number of lessons in a chapter
	//
	// "ctx" is the context for the request.
	// "chapterID" is the ID of the chapter.
	//
	// Returns the count and an error if any.
	CountByChapter(ctx context.Context, chapterID int) (int, error)
	// Create creates a new lesson
	//
	// "ctx" is the context for the request.
	// "lesson" is the lesson to create, its ID and timestamps are filled in.
	//
	// Returns an error if any.
	Create(ctx context.Context, lesson *models.Lesson) error
	// CreateBatch inserts many lessons in one statement
	//
	// "ctx" is the context for the request.
	// "lessons" are the lessons to insert.
	//
	// Returns the number of inserted lessons and an error if any.
	CreateBatch(ctx context.Context, lessons []models.Lesson) (int, error)
	// Update applies a partial update to a lesson
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	// "req" holds the fields to change.
	//
	// Returns an error if any.
	Update(ctx context.Context, id int, req *models.UpdateLessonRequest) error
	// Delete deletes a lesson
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	//
	// Returns an error if any.
	Delete(ctx context.Context, id int) error
	// UpdateOrderIndex sets the order index of a lesson within its chapter
	//
	// "ctx" is the context for the request.
	// "chapterID" is the ID of the chapter the lesson must belong to.
	// "id" is the ID of the lesson.
	// "orderIndex" is the new position.
	//
	// Returns false when the lesson does not belong to the chapter and an error if any.
	UpdateOrderIndex(ctx context.Context, chapterID, id, orderIndex int) (bool, error)
	// CompactOrder rewrites the lesson order of every chapter in a course to 0..n-1
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns the number of rewritten lessons and an error if any.
	CompactOrder(ctx context.Context, courseID int) (int, error)
}

// UserRepository defines methods for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the user.
	//
	// Returns the user and an error if any.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// List retrieves a page of users with filtering and sorting
	//
	// "ctx" is the context for the request.
	// "filter" holds the optional predicates.
	// "sort" is the requested sort; unknown fields fall back to the newest users first.
	// "page" is the requested page window.
	//
	// Returns the users of the page, the size of the filtered set and an error if any.
	List(ctx context.Context, filter *models.UserFilter, sort models.Sort, page models.PageRequest) ([]models.User, int, error)
	// UpdateRole changes the role of a user
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the user.
	// "role" is the new role.
	//
	// Returns an error if any.
	UpdateRole(ctx context.Context, id int, role principal.Role) error
	// UpdateProfile applies a partial profile update to a user
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the user.
	// "patch" holds the fields to change.
	//
	// Returns an error if any.
	UpdateProfile(ctx context.Context, id int, patch *models.UpdateUserProfileRequest) error
	// BulkUpdate applies one profile patch to many users
	//
	// "ctx" is the context for the request.
	// "ids" are the IDs of the users.
	// "patch" holds the fields to change.
	//
	// Returns the number of updated users and an error if any.
	BulkUpdate(ctx context.Context, ids []int, patch *models.UpdateUserProfileRequest) (int, error)
	// Delete removes a user together with their enrollments
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the user.
	//
	// Returns an error if any.
	Delete(ctx context.Context, id int) error
	// Stats counts users by role and recent activity
	//
	// "ctx" is the context for the request.
	//
	// Returns the statistics and an error if any.
	Stats(ctx context.Context) (*models.UserStats, error)
	// CountEnrollments returns the number of courses a user is enrolled in
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns the count and an error if any.
	CountEnrollments(ctx context.Context, userID int) (int, error)
	// CountCoursesTeaching returns the number of courses a user instructs
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns the count and an error if any.
	CountCoursesTeaching(ctx context.Context, userID int) (int, error)
	// LearnersOfCourse retrieves a page of the users enrolled in a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "page" is the requested page window.
	//
	// Returns the learners of the page, the number of learners and an error if any.
	LearnersOfCourse(ctx context.Context, courseID int, page models.PageRequest) ([]models.Learner, int, error)
}
