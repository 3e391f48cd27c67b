package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fare-pipeline/internal/domain/entity"
)

var (
	ErrDuplicateTask     = errors.New("task already submitted")
	ErrUnknownDependency = errors.New("dependency was not submitted")
)

// QueueResult counts task outcomes of one Run
type QueueResult struct {
	Completed int
	Failed    int
	Skipped   int
}

type queuedTask struct {
	task   *entity.ScheduleTask
	status string
}

// LocalTaskQueue is an in-process dependency-aware task queue. Dependencies must be
// submitted before their dependents, which keeps the graph acyclic.
type LocalTaskQueue struct {
	mu    sync.Mutex
	tasks map[string]*queuedTask
	order []string
}

// NewLocalTaskQueue creates an empty queue
func NewLocalTaskQueue() *LocalTaskQueue {
	return &LocalTaskQueue{tasks: make(map[string]*queuedTask)}
}

// Submit adds a task and returns its ID, assigning one when empty
func (q *LocalTaskQueue) Submit(task *entity.ScheduleTask) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, exists := q.tasks[task.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID)
	}
	for _, dep := range task.DependsOn {
		if _, ok := q.tasks[dep]; !ok {
			return "", fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, task.ID, dep)
		}
	}

	q.tasks[task.ID] = &queuedTask{task: task, status: entity.TaskPending}
	q.order = append(q.order, task.ID)
	return task.ID, nil
}

// Purge drops every task
func (q *LocalTaskQueue) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = make(map[string]*queuedTask)
	q.order = nil
}

// Len returns the number of submitted tasks
func (q *LocalTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Status returns the status of a task
func (q *LocalTaskQueue) Status(id string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	qt, ok := q.tasks[id]
	if !ok {
		return "", false
	}
	return qt.status, true
}

// Ready returns pending tasks whose dependencies have all completed, in submit order
func (q *LocalTaskQueue) Ready() []*entity.ScheduleTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readyLocked()
}

func (q *LocalTaskQueue) readyLocked() []*entity.ScheduleTask {
	var ready []*entity.ScheduleTask
	for _, id := range q.order {
		qt := q.tasks[id]
		if qt.status != entity.TaskPending {
			continue
		}
		eligible := true
		for _, dep := range qt.task.DependsOn {
			if q.tasks[dep].status != entity.TaskCompleted {
				eligible = false
				break
			}
		}
		if eligible {
			ready = append(ready, qt.task)
		}
	}
	return ready
}

// skipBlockedLocked marks pending tasks whose dependency failed or was skipped. Tasks
// are in topological order, so one pass propagates through whole chains.
func (q *LocalTaskQueue) skipBlockedLocked() int {
	skipped := 0
	for _, id := range q.order {
		qt := q.tasks[id]
		if qt.status != entity.TaskPending {
			continue
		}
		for _, dep := range qt.task.DependsOn {
			s := q.tasks[dep].status
			if s == entity.TaskFailed || s == entity.TaskSkipped {
				qt.status = entity.TaskSkipped
				skipped++
				break
			}
		}
	}
	return skipped
}

func (q *LocalTaskQueue) skipPendingLocked() int {
	skipped := 0
	for _, id := range q.order {
		if qt := q.tasks[id]; qt.status == entity.TaskPending {
			qt.status = entity.TaskSkipped
			skipped++
		}
	}
	return skipped
}

type taskResult struct {
	id  string
	err error
}

// Run executes every submitted task on at most workers goroutines, starting each task
// once all of its dependencies completed. Handler errors fail only that task and skip
// its dependents. Cancelling ctx stops new tasks from starting.
func (q *LocalTaskQueue) Run(ctx context.Context, workers int, handle func(context.Context, *entity.ScheduleTask) error) (QueueResult, error) {
	if workers <= 0 {
		workers = 1
	}

	var result QueueResult
	results := make(chan taskResult, q.Len())

	var g errgroup.Group
	g.SetLimit(workers)

	inflight := 0
	for {
		q.mu.Lock()
		result.Skipped += q.skipBlockedLocked()
		if ctx.Err() == nil {
			for _, t := range q.readyLocked() {
				if inflight >= workers {
					break
				}
				task := t
				q.tasks[task.ID].status = entity.TaskRunning
				inflight++
				// may wait briefly for a finished worker to release its slot
				g.Go(func() error {
					results <- taskResult{id: task.ID, err: handle(ctx, task)}
					return nil
				})
			}
		} else if inflight == 0 {
			result.Skipped += q.skipPendingLocked()
		}
		q.mu.Unlock()

		if inflight == 0 {
			break
		}

		r := <-results
		inflight--

		q.mu.Lock()
		if r.err != nil {
			q.tasks[r.id].status = entity.TaskFailed
			result.Failed++
		} else {
			q.tasks[r.id].status = entity.TaskCompleted
			result.Completed++
		}
		q.mu.Unlock()
	}

	_ = g.Wait()
	return result, ctx.Err()
}
