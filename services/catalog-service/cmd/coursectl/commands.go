package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/libs/auth/service"
	"github.com/coursecraft/backend/libs/cache"
	"github.com/coursecraft/backend/libs/config"
	"github.com/coursecraft/backend/libs/logger"
	"github.com/coursecraft/backend/services/catalog-service/internal/bootstrap"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/coursecraft/backend/services/catalog-service/internal/repositories"
	"github.com/coursecraft/backend/services/catalog-service/internal/seed"
	"github.com/coursecraft/backend/services/catalog-service/internal/services"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env holds the connections opened for one command
type env struct {
	cfg *config.Config
	db  *sql.DB
	rdb *redis.Client
}

func (e *env) Close() {
	if e.rdb != nil {
		e.rdb.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
	logger.Sync()
}

// openEnv loads the configuration and opens the database, plus Redis when withRedis is set
func openEnv(ctx context.Context, withRedis bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg}
	if e.db, err = bootstrap.ConnectDB(cfg.DSN()); err != nil {
		return nil, err
	}
	if withRedis {
		if e.rdb, err = bootstrap.ConnectRedis(ctx, cfg.Redis); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

type chapterCatalog interface {
	seed.ChapterCreator
	CopyLessons(ctx context.Context, sourceChapterID, targetChapterID int) (int, error)
}

type orderRepairer interface {
	RepairAll(ctx context.Context) (int, error)
	RepairOrder(ctx context.Context, p principal.Principal, courseID int) (*models.RepairResult, error)
}

// catalog holds the services a command runs against
type catalog struct {
	courses  seed.CourseCreator
	chapters chapterCatalog
	lessons  seed.LessonCreator
	reorder  orderRepairer
}

// actorID is the admin recorded as author of the rows a command writes
var actorID int

func actor() principal.Principal {
	return principal.Principal{UserID: actorID, Role: principal.RoleAdmin}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coursectl",
		Short:         "Maintenance commands for the course catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&actorID, "as", 1, "ID of the admin the command acts as")
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newRepairOrderCmd(),
		newCopyLessonsCmd(),
		newTokenCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			if path == "" {
				path = bootstrap.MigrationsPath()
			}
			if err := bootstrap.RunMigrations(e.db, path); err != nil {
				return err
			}
			logger.Logger.Info("Migrations applied", zap.String("path", path))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "migrations source URL (default: file://migrations)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and courses from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			gormDB, err := bootstrap.OpenGorm(e.db)
			if err != nil {
				return err
			}
			c := e.catalog()
			seeder := seed.NewSeeder(
				repositories.NewUserRepository(gormDB),
				repositories.NewCourseRepository(e.db),
				c.courses,
				c.chapters,
				c.lessons,
				actor(),
				logger.Logger,
			)

			result, err := seeder.Apply(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users: %d, courses: %d (skipped %d), chapters: %d, lessons: %d\n",
				result.Users, result.Courses, result.SkippedCourses, result.Chapters, result.Lessons)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "seeds/catalog.yaml", "seed file")
	return cmd
}

func newRepairOrderCmd() *cobra.Command {
	var courseID int
	cmd := &cobra.Command{
		Use:   "repair-order",
		Short: "Compact chapter and lesson order indices",
		Long:  "Compacts the order indices of one course, or of every course with gaps when --course is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			reorder := e.catalog().reorder
			if courseID == 0 {
				repaired, err := reorder.RepairAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "repaired courses: %d\n", repaired)
				return nil
			}

			result, err := reorder.RepairOrder(cmd.Context(), actor(), courseID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chapters updated: %d, lessons updated: %d\n", result.ChaptersUpdated, result.LessonsUpdated)
			return nil
		},
	}
	cmd.Flags().IntVar(&courseID, "course", 0, "course ID (default: every course with gaps)")
	return cmd
}

func newCopyLessonsCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "copy-lessons",
		Short: "Copy the lessons of one chapter into another that has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			copied, err := e.catalog().chapters.CopyLessons(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied lessons: %d\n", copied)
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "source chapter ID")
	cmd.Flags().IntVar(&to, "to", 0, "target chapter ID")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID int
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !principal.Role(role).IsValid() {
				return fmt.Errorf("invalid role %q", role)
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenExpiry
			}

			token, err := service.NewTokenValidator(cfg.JWT.Secret, ttl).GenerateAccessToken(userID, principal.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().IntVar(&userID, "user", 1, "user ID")
	cmd.Flags().StringVar(&role, "role", string(principal.RoleAdmin), "student, instructor or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: JWT_ACCESS_TOKEN_EXPIRY)")
	return cmd
}

// catalog wires the services over the open connections
func (e *env) catalog() catalog {
	courseRepo := repositories.NewCourseRepository(e.db)
	chapterRepo := repositories.NewChapterRepository(e.db)
	lessonRepo := repositories.NewLessonRepository(e.db)

	var sink services.Invalidator
	if e.rdb != nil {
		sink = cache.New(e.rdb, e.cfg.Cache.Channel, logger.Logger)
	}

	return catalog{
		courses:  services.NewCourseService(courseRepo, chapterRepo, lessonRepo, sink, logger.Logger),
		chapters: services.NewChapterService(courseRepo, chapterRepo, lessonRepo, sink, nil, logger.Logger),
		lessons:  services.NewLessonService(courseRepo, chapterRepo, lessonRepo, sink, logger.Logger),
		reorder:  services.NewReorderService(courseRepo, chapterRepo, lessonRepo, sink, logger.Logger),
	}
}
