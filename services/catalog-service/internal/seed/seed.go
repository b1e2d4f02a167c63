// Package seed loads demo catalogs from YAML files into the store
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the layout of a seed file
type File struct {
	Users   []User   `yaml:"users"`
	Courses []Course `yaml:"courses"`
}

// User is a seeded account
type User struct {
	ID        int            `yaml:"id"`
	Username  string         `yaml:"username"`
	FirstName string         `yaml:"firstName"`
	LastName  string         `yaml:"lastName"`
	Email     string         `yaml:"email"`
	Role      principal.Role `yaml:"role"`
}

// Course is a seeded course with its curriculum in order
type Course struct {
	Title        string    `yaml:"title"`
	Slug         string    `yaml:"slug"`
	Description  string    `yaml:"description"`
	Tagline      string    `yaml:"tagline"`
	Status       string    `yaml:"status"`
	Visibility   string    `yaml:"visibility"`
	Level        string    `yaml:"level"`
	Languages    []string  `yaml:"languages"`
	Tags         []string  `yaml:"tags"`
	Featured     bool      `yaml:"featured"`
	InstructorID int       `yaml:"instructorId"`
	Chapters     []Chapter `yaml:"chapters"`
}

// Chapter is a seeded chapter
type Chapter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	IsFree      bool     `yaml:"isFree"`
	Lessons     []Lesson `yaml:"lessons"`
}

// Lesson is a seeded lesson
type Lesson struct {
	Title       string `yaml:"title"`
	ContentType string `yaml:"contentType"`
	ContentURL  string `yaml:"contentUrl"`
	ContentBody string `yaml:"contentBody"`
	IsPreview   bool   `yaml:"isPreview"`
	Duration    int    `yaml:"duration"`
}

// Decode reads a seed file from r, rejecting unknown keys
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &f, nil
}

// Load reads the seed file at path
func Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// UserStore inserts seeded accounts
type UserStore interface {
	EnsureUsers(ctx context.Context, users []models.User) (int, error)
}

// SlugChecker tells whether a course slug is already in use
type SlugChecker interface {
	ExistsBySlug(ctx context.Context, slug string, excludeID int) (bool, error)
}

// CourseCreator creates courses
type CourseCreator interface {
	Create(ctx context.Context, p principal.Principal, req *models.CreateCourseRequest) (*models.Course, error)
}

// ChapterCreator creates chapters
type ChapterCreator interface {
	Create(ctx context.Context, p principal.Principal, req *models.CreateChapterRequest) (*models.Chapter, error)
}

// LessonCreator creates lessons
type LessonCreator interface {
	Create(ctx context.Context, p principal.Principal, req *models.CreateLessonRequest) (*models.Lesson, error)
}

// Result counts what a seed run wrote
type Result struct {
	Users          int
	Courses        int
	Chapters       int
	Lessons        int
	SkippedCourses int
}

// Seeder writes seed files through the catalog services
type Seeder struct {
	users    UserStore
	slugs    SlugChecker
	courses  CourseCreator
	chapters ChapterCreator
	lessons  LessonCreator
	actor    principal.Principal
	logger   *zap.Logger
}

// NewSeeder creates a seeder acting as actor, which must be an admin
func NewSeeder(users UserStore, slugs SlugChecker, courses CourseCreator, chapters ChapterCreator, lessons LessonCreator, actor principal.Principal, logger *zap.Logger) *Seeder {
	return &Seeder{
		users:    users,
		slugs:    slugs,
		courses:  courses,
		chapters: chapters,
		lessons:  lessons,
		actor:    actor,
		logger:   logger,
	}
}

// Apply writes f, skipping courses whose slug already exists
//
// Chapters and lessons are numbered from zero in file order.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	result := &Result{}

	users := make([]models.User, 0, len(f.Users))
	for _, u := range f.Users {
		if !u.Role.IsValid() {
			return result, fmt.Errorf("user %s: invalid role %q", u.Username, u.Role)
		}
		users = append(users, models.User{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Role:      u.Role,
		})
	}
	inserted, err := s.users.EnsureUsers(ctx, users)
	if err != nil {
		return result, err
	}
	result.Users = inserted

	for _, c := range f.Courses {
		exists, err := s.slugs.ExistsBySlug(ctx, c.Slug, 0)
		if err != nil {
			return result, err
		}
		if exists {
			s.logger.Info("Course already seeded", zap.String("slug", c.Slug))
			result.SkippedCourses++
			continue
		}
		if err := s.applyCourse(ctx, c, result); err != nil {
			return result, fmt.Errorf("course %s: %w", c.Slug, err)
		}
	}

	return result, nil
}

func (s *Seeder) applyCourse(ctx context.Context, c Course, result *Result) error {
	course, err := s.courses.Create(ctx, s.actor, &models.CreateCourseRequest{
		Title:        c.Title,
		Slug:         c.Slug,
		Description:  c.Description,
		Tagline:      c.Tagline,
		Status:       models.CourseStatus(c.Status),
		Visibility:   models.CourseVisibility(c.Visibility),
		Level:        models.CourseLevel(c.Level),
		Languages:    c.Languages,
		Tags:         c.Tags,
		Featured:     c.Featured,
		InstructorID: c.InstructorID,
	})
	if err != nil {
		return err
	}
	result.Courses++

	for i, ch := range c.Chapters {
		chapter, err := s.chapters.Create(ctx, s.actor, &models.CreateChapterRequest{
			CourseID:    course.ID,
			Title:       ch.Title,
			Description: ch.Description,
			OrderIndex:  &i,
			IsFree:      ch.IsFree,
		})
		if err != nil {
			return fmt.Errorf("chapter %q: %w", ch.Title, err)
		}
		result.Chapters++

		for j, l := range ch.Lessons {
			_, err := s.lessons.Create(ctx, s.actor, &models.CreateLessonRequest{
				ChapterID:   chapter.ID,
				Title:       l.Title,
				ContentType: models.ContentType(l.ContentType),
				ContentURL:  l.ContentURL,
				ContentBody: l.ContentBody,
				OrderIndex:  &j,
				IsPreview:   l.IsPreview,
				Duration:    l.Duration,
			})
			if err != nil {
				return fmt.Errorf("lesson %q: %w", l.Title, err)
			}
			result.Lessons++
		}
	}

	s.logger.Info("Course seeded",
		zap.String("slug", c.Slug),
		zap.Int("chapters", len(c.Chapters)),
	)
	return nil
}
