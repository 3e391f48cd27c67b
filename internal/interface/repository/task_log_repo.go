package repository

import (
	"context"
	"errors"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"

	"gorm.io/gorm"
)

// GormTaskLogRepository implements the TaskLogRepository interface
type GormTaskLogRepository struct {
	db *gorm.DB
}

// NewGormTaskLogRepository creates a new GORM task log repository
func NewGormTaskLogRepository(db *gorm.DB) repository.TaskLogRepository {
	return &GormTaskLogRepository{
		db: db,
	}
}

// TaskLogs GORM model for database mapping
type TaskLogs struct {
	gorm.Model
	TaskID    string `gorm:"column:task_id;index"`
	Kind      string `gorm:"column:kind"`
	QueueName string `gorm:"column:queue_name"`
	Payload   string `gorm:"column:payload"`
	Host      string `gorm:"column:host_carrier"`
	Market    string `gorm:"column:market"`
	ScraperID string `gorm:"column:scraper_id"`
	Status    string `gorm:"column:status"`
	Detail    string `gorm:"column:detail"`
}

// TableName overrides the default table name
func (TaskLogs) TableName() string {
	return "task_logs"
}

// Create inserts a new task log into the database
func (r *GormTaskLogRepository) Create(ctx context.Context, entry *entity.TaskLogEntry) error {
	model := TaskLogs{
		TaskID:    entry.TaskID,
		Kind:      string(entry.Kind),
		QueueName: entry.QueueName,
		Payload:   entry.Payload,
		Host:      entry.Host,
		Market:    entry.Market,
		ScraperID: entry.ScraperID,
		Status:    entry.Status,
		Detail:    entry.Detail,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		return result.Error
	}

	// Update the entity with the generated ID
	entry.ID = model.ID
	entry.CreatedAt = model.CreatedAt
	entry.UpdatedAt = model.UpdatedAt

	return nil
}

// UpdateStatus sets the status of the latest log row of a task
func (r *GormTaskLogRepository) UpdateStatus(ctx context.Context, taskID string, status string, detail string) error {
	latest := r.db.Model(&TaskLogs{}).Select("MAX(id)").Where("task_id = ?", taskID)
	result := r.db.WithContext(ctx).Model(&TaskLogs{}).
		Where("id = (?)", latest).
		Updates(map[string]interface{}{"status": status, "detail": detail})
	return result.Error
}

// GetByTaskID returns the latest log row of a task, or nil when none exists
func (r *GormTaskLogRepository) GetByTaskID(ctx context.Context, taskID string) (*entity.TaskLogEntry, error) {
	var task TaskLogs
	result := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id DESC").First(&task)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	// Convert to domain entity
	return &entity.TaskLogEntry{
		ID:        task.ID,
		TaskID:    task.TaskID,
		Kind:      entity.TaskKind(task.Kind),
		QueueName: task.QueueName,
		Payload:   task.Payload,
		Host:      task.Host,
		Market:    task.Market,
		ScraperID: task.ScraperID,
		Status:    task.Status,
		Detail:    task.Detail,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}, nil
}
