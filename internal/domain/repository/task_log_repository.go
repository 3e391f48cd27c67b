package repository

import (
	"context"

	"fare-pipeline/internal/domain/entity"
)

// TaskLogRepository defines the interface for dispatched task records
type TaskLogRepository interface {
	Create(ctx context.Context, entry *entity.TaskLogEntry) error
	UpdateStatus(ctx context.Context, taskID string, status string, detail string) error
	GetByTaskID(ctx context.Context, taskID string) (*entity.TaskLogEntry, error)
}
