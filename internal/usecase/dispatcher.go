package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/metrics"
)

// DispatchStats summarizes one dispatch of a job graph
type DispatchStats struct {
	Submitted int
	Completed int
	Failed    int
	Skipped   int
}

// Dispatcher hands a job graph to an execution backend
type Dispatcher interface {
	Dispatch(ctx context.Context, graph *JobGraph) (DispatchStats, error)
}

// PoolSize returns the local worker count for the given scraper fleet
func PoolSize(servers, jobsPerServer int) int {
	if servers < 0 {
		servers = 0
	}
	if jobsPerServer < 0 {
		jobsPerServer = 0
	}
	return servers*jobsPerServer + 1
}

// LocalDispatcher runs a job graph in process on a bounded worker pool
type LocalDispatcher struct {
	queue   *LocalTaskQueue
	router  TaskRouter
	taskLog repository.TaskLogRepository
	metrics *metrics.Metrics
	logger  logger.Logger
	workers int
}

// NewLocalDispatcher creates a local dispatcher. taskLog and metrics may be nil.
func NewLocalDispatcher(
	router TaskRouter,
	taskLog repository.TaskLogRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
	workers int,
) *LocalDispatcher {
	return &LocalDispatcher{
		queue:   NewLocalTaskQueue(),
		router:  router,
		taskLog: taskLog,
		metrics: metrics,
		logger:  logger,
		workers: workers,
	}
}

// Dispatch replaces whatever the queue held with graph and runs it to completion
func (d *LocalDispatcher) Dispatch(ctx context.Context, graph *JobGraph) (DispatchStats, error) {
	d.queue.Purge()

	var stats DispatchStats
	for _, task := range graph.Tasks {
		if _, err := d.queue.Submit(task); err != nil {
			return stats, fmt.Errorf("failed to submit task: %w", err)
		}
		d.record(ctx, task, "local")
		stats.Submitted++
	}

	d.logger.Info("Running local task queue", "tasks", stats.Submitted, "workers", d.workers)

	result, err := d.queue.Run(ctx, d.workers, d.handle)
	stats.Completed = result.Completed
	stats.Failed = result.Failed
	stats.Skipped = result.Skipped

	for _, task := range graph.Tasks {
		if status, ok := d.queue.Status(task.ID); ok && status == entity.TaskSkipped {
			d.setStatus(ctx, task, entity.TaskSkipped, "dependency did not complete")
		}
	}

	d.logger.Info("Local task queue finished",
		"submitted", stats.Submitted,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, err
}

func (d *LocalDispatcher) handle(ctx context.Context, task *entity.ScheduleTask) error {
	handler := d.router.GetHandler(task.Kind)
	if handler == nil {
		err := fmt.Errorf("no handler for task kind %s", task.Kind)
		d.setStatus(ctx, task, entity.TaskFailed, err.Error())
		return err
	}

	d.setStatus(ctx, task, entity.TaskRunning, "")
	if err := handler.Handle(ctx, task); err != nil {
		d.setStatus(ctx, task, entity.TaskFailed, err.Error())
		return err
	}
	d.setStatus(ctx, task, entity.TaskCompleted, "")
	return nil
}

func (d *LocalDispatcher) record(ctx context.Context, task *entity.ScheduleTask, queue string) {
	if d.taskLog == nil {
		return
	}
	if err := d.taskLog.Create(ctx, newTaskLogEntry(task, queue, entity.TaskQueued)); err != nil {
		d.logger.Warn("Failed to record task", "taskId", task.ID, "error", err)
	}
}

func (d *LocalDispatcher) setStatus(ctx context.Context, task *entity.ScheduleTask, status, detail string) {
	if d.metrics != nil && status != entity.TaskRunning {
		d.metrics.TasksDispatched.WithLabelValues(string(task.Kind), status).Inc()
	}
	if d.taskLog == nil {
		return
	}
	if err := d.taskLog.UpdateStatus(ctx, task.ID, status, detail); err != nil {
		d.logger.Warn("Failed to update task status", "taskId", task.ID, "status", status, "error", err)
	}
}

// RemoteDispatcher enqueues scrape tasks on a distributed queue. Execution is left
// to the queue's consumers, so only enqueue is guaranteed.
type RemoteDispatcher struct {
	queue       repository.RemoteQueue
	taskLog     repository.TaskLogRepository
	metrics     *metrics.Metrics
	logger      logger.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewRemoteDispatcher creates a remote dispatcher. taskLog and metrics may be nil.
func NewRemoteDispatcher(
	queue repository.RemoteQueue,
	taskLog repository.TaskLogRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
	maxAttempts int,
	backoff time.Duration,
) *RemoteDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RemoteDispatcher{
		queue:       queue,
		taskLog:     taskLog,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Dispatch purges the queue, then sends one message per scrape task. Stale tasks
// from a previous plan are gone before the first send.
func (d *RemoteDispatcher) Dispatch(ctx context.Context, graph *JobGraph) (DispatchStats, error) {
	var stats DispatchStats

	if err := d.queue.PurgeAll(ctx); err != nil {
		return stats, fmt.Errorf("failed to purge queue %s: %w", d.queue.Name(), err)
	}

	for _, task := range graph.Tasks {
		if task.Kind != entity.TaskScrape {
			continue
		}
		stats.Submitted++

		body, err := json.Marshal(task)
		if err != nil {
			return stats, fmt.Errorf("failed to encode task %s: %w", task.ID, err)
		}

		status := entity.TaskQueued
		detail := ""
		if err := d.send(ctx, body); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			d.logger.Error("Failed to enqueue scrape task", append(taskFields(task), "queue", d.queue.Name(), "error", err)...)
			stats.Failed++
			status = entity.TaskFailed
			detail = err.Error()
		} else {
			stats.Completed++
		}

		if d.metrics != nil {
			d.metrics.TasksDispatched.WithLabelValues(string(task.Kind), status).Inc()
		}
		if d.taskLog != nil {
			entry := newTaskLogEntry(task, d.queue.Name(), status)
			entry.Payload = string(body)
			entry.Detail = detail
			if err := d.taskLog.Create(ctx, entry); err != nil {
				d.logger.Warn("Failed to record task", "taskId", task.ID, "error", err)
			}
		}
	}

	d.logger.Info("Scrape tasks enqueued",
		"queue", d.queue.Name(),
		"submitted", stats.Submitted,
		"sent", stats.Completed,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (d *RemoteDispatcher) send(ctx context.Context, body []byte) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.queue.Send(ctx, body); err == nil {
			return nil
		}
		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func newTaskLogEntry(task *entity.ScheduleTask, queue, status string) *entity.TaskLogEntry {
	entry := &entity.TaskLogEntry{
		TaskID:    task.ID,
		Kind:      task.Kind,
		QueueName: queue,
		Host:      task.HostCarrier,
		Market:    task.Market(),
		ScraperID: task.ScraperID,
		Status:    status,
	}
	if body, err := json.Marshal(task); err == nil {
		entry.Payload = string(body)
	}
	return entry
}
