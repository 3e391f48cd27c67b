package usecase

import (
	"context"

	"fare-pipeline/internal/domain/entity"
)

// TaskHandler defines the interface for schedule task handlers
type TaskHandler interface {
	// CanHandle determines if this handler can run tasks of the given kind
	CanHandle(kind entity.TaskKind) bool

	// Handle runs the task. A nil error means the task completed.
	Handle(ctx context.Context, task *entity.ScheduleTask) error
}

// TaskRouter routes tasks to the appropriate handler based on kind
type TaskRouter interface {
	// Register registers a handler
	Register(handler TaskHandler)

	// GetHandler returns the first handler accepting kind, or nil
	GetHandler(kind entity.TaskKind) TaskHandler
}
