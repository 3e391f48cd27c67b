package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-pipeline/internal/domain/entity"
)

func TestRemoteDispatcher_PurgesThenSendsScrapeTasks(t *testing.T) {
	b, err := NewJobGraphBuilder(PlanDistributed, false)
	require.NoError(t, err)
	graph := b.Build(hostPlan(twoScraperMarket()), ts("2026-10-12T00:00:00Z"))

	queue := &fakeQueue{failures: 2}
	taskLog := newFakeTaskLog()
	d := NewRemoteDispatcher(queue, taskLog, nil, testLogger, 3, time.Millisecond)

	stats, err := d.Dispatch(context.Background(), graph)
	require.NoError(t, err)

	assert.Equal(t, DispatchStats{Submitted: 10, Completed: 10}, stats)
	assert.Equal(t, "purge", queue.calls[0])
	require.Len(t, queue.sent, 10)

	var msg entity.ScheduleTask
	require.NoError(t, json.Unmarshal(queue.sent[0], &msg))
	assert.Equal(t, graph.Tasks[0].ID, msg.ID)
	assert.Equal(t, "JFK", msg.Origin)
	assert.Equal(t, "s1", msg.ScraperID)

	entry, err := taskLog.GetByTaskID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskQueued, entry.Status)
	assert.Equal(t, "scrape-tasks", entry.QueueName)
}

func TestRemoteDispatcher_CountsExhaustedRetries(t *testing.T) {
	graph := &JobGraph{Tasks: []*entity.ScheduleTask{
		{ID: "t1", Kind: entity.TaskScrape, Origin: "JFK", Destination: "LAX"},
		{ID: "t2", Kind: entity.TaskScrape, Origin: "JFK", Destination: "LAX"},
	}}
	queue := &fakeQueue{failures: 2}
	taskLog := newFakeTaskLog()
	d := NewRemoteDispatcher(queue, taskLog, nil, testLogger, 2, 0)

	stats, err := d.Dispatch(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Submitted: 2, Completed: 1, Failed: 1}, stats)

	entry, _ := taskLog.GetByTaskID(context.Background(), "t1")
	assert.Equal(t, entity.TaskFailed, entry.Status)
}

func TestLocalDispatcher_RunsGraphThroughHandlers(t *testing.T) {
	b, err := NewJobGraphBuilder(PlanLocal, true)
	require.NoError(t, err)
	graph := b.Build(hostPlan(twoScraperMarket()), ts("2026-10-12T00:00:00Z"))

	var failing string
	for _, tk := range graph.Tasks {
		if tk.Kind == entity.TaskScrape && tk.ScraperID == "s2" {
			failing = tk.ID
			break
		}
	}

	client := &fakeScraperClient{fail: map[string]bool{failing: true}}
	balancer := NewRoundRobinBalancer([]string{"http://s1", "http://s2"})
	copied := make(chan string, 4)

	router := &mapRouter{}
	router.Register(NewScrapeTaskHandler(client, balancer, testLogger))
	router.Register(NewStageTaskHandler(client, balancer, testLogger))
	router.Register(handlerFunc{kind: entity.TaskFareCopy, fn: func(ctx context.Context, tk *entity.ScheduleTask) error {
		copied <- tk.ScraperID
		return nil
	}})

	taskLog := newFakeTaskLog()
	d := NewLocalDispatcher(router, taskLog, nil, testLogger, PoolSize(2, 2))

	stats, err := d.Dispatch(context.Background(), graph)
	require.NoError(t, err)

	// s2 loses its fare-copy and extract-schedule to the failed scrape
	assert.Equal(t, DispatchStats{Submitted: 14, Completed: 11, Failed: 1, Skipped: 2}, stats)
	close(copied)
	var scrapers []string
	for s := range copied {
		scrapers = append(scrapers, s)
	}
	assert.Equal(t, []string{"s1"}, scrapers)
	assert.Equal(t, []entity.TaskKind{entity.TaskExtractSchedule}, client.stages)

	entry, _ := taskLog.GetByTaskID(context.Background(), failing)
	assert.Equal(t, entity.TaskFailed, entry.Status)
	assert.Contains(t, entry.Detail, "scrape task failed")
}

func TestLocalDispatcher_FailsTasksWithoutHandler(t *testing.T) {
	graph := &JobGraph{Tasks: []*entity.ScheduleTask{{ID: "x", Kind: entity.TaskReoptimize}}}
	d := NewLocalDispatcher(&mapRouter{}, nil, nil, testLogger, 1)

	stats, err := d.Dispatch(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
}

type handlerFunc struct {
	kind entity.TaskKind
	fn   func(ctx context.Context, task *entity.ScheduleTask) error
}

func (h handlerFunc) CanHandle(kind entity.TaskKind) bool { return kind == h.kind }

func (h handlerFunc) Handle(ctx context.Context, task *entity.ScheduleTask) error {
	return h.fn(ctx, task)
}
