// Package tasks defines the background jobs of the catalog and their asynq plumbing
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeCopyLessons copies the lessons of a chapter into its duplicate
	TypeCopyLessons = "chapter:copy_lessons"
	// QueueDefault is the queue catalog jobs are placed on
	QueueDefault = "default"
)

// CopyLessonsPayload names the chapter whose lessons are copied and the chapter receiving them
type CopyLessonsPayload struct {
	SourceChapterID int `json:"sourceChapterId"`
	TargetChapterID int `json:"targetChapterId"`
}

// NewCopyLessonsTask creates a lesson copy task
func NewCopyLessonsTask(sourceChapterID, targetChapterID int) (*asynq.Task, error) {
	payload, err := json.Marshal(CopyLessonsPayload{
		SourceChapterID: sourceChapterID,
		TargetChapterID: targetChapterID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode copy lessons payload: %w", err)
	}
	return asynq.NewTask(TypeCopyLessons, payload), nil
}

// Client is the subset of the asynq client used to enqueue tasks
type Client interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer places catalog jobs on the queue
type Enqueuer struct {
	client   Client
	maxRetry int
}

// NewEnqueuer creates an enqueuer retrying each job up to maxRetry times
func NewEnqueuer(client Client, maxRetry int) *Enqueuer {
	return &Enqueuer{
		client:   client,
		maxRetry: maxRetry,
	}
}

// EnqueueCopyLessons queues the copy of the lessons of sourceChapterID into targetChapterID
func (e *Enqueuer) EnqueueCopyLessons(ctx context.Context, sourceChapterID, targetChapterID int) error {
	task, err := NewCopyLessonsTask(sourceChapterID, targetChapterID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(e.maxRetry)); err != nil {
		return fmt.Errorf("failed to enqueue lesson copy: %w", err)
	}
	return nil
}

// LessonCopier performs the copy behind a lesson copy task
type LessonCopier interface {
	// CopyLessons copies every lesson of the source chapter into the target chapter
	//
	// "ctx" is the context for the request.
	// "sourceChapterID" is the ID of the chapter to copy from.
	// "targetChapterID" is the ID of the chapter to copy into.
	//
	// Returns the number of copied lessons and an error if any.
	CopyLessons(ctx context.Context, sourceChapterID, targetChapterID int) (int, error)
}

// Handler processes catalog tasks
type Handler struct {
	copier LessonCopier
	logger *zap.Logger
}

// NewHandler creates a new task handler
func NewHandler(copier LessonCopier, logger *zap.Logger) *Handler {
	return &Handler{
		copier: copier,
		logger: logger,
	}
}

// HandleCopyLessons handles a lesson copy task
//
// A malformed payload, or a copy rejected as invalid or naming a missing chapter, is not retried.
func (h *Handler) HandleCopyLessons(ctx context.Context, t *asynq.Task) error {
	var payload CopyLessonsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode copy lessons payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.SourceChapterID <= 0 || payload.TargetChapterID <= 0 {
		return fmt.Errorf("invalid copy lessons payload: %w", asynq.SkipRetry)
	}

	copied, err := h.copier.CopyLessons(ctx, payload.SourceChapterID, payload.TargetChapterID)
	if err != nil {
		h.logger.Warn("lesson copy failed",
			zap.Int("source_chapter_id", payload.SourceChapterID),
			zap.Int("target_chapter_id", payload.TargetChapterID),
			zap.Error(err))
		if apperr.Is(err, apperr.KindValidation) || apperr.Is(err, apperr.KindNotFound) {
			return fmt.Errorf("lesson copy rejected: %w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Info("lessons copied",
		zap.Int("source_chapter_id", payload.SourceChapterID),
		zap.Int("target_chapter_id", payload.TargetChapterID),
		zap.Int("copied", copied))
	return nil
}
