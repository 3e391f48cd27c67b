package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-pipeline/internal/domain/entity"
)

func TestScrapeTaskHandler_WrapsFailure(t *testing.T) {
	client := &fakeScraperClient{fail: map[string]bool{"t1": true}}
	h := NewScrapeTaskHandler(client, NewRoundRobinBalancer([]string{"http://s1", "http://s2"}), testLogger)

	assert.True(t, h.CanHandle(entity.TaskScrape))
	assert.False(t, h.CanHandle(entity.TaskFareCopy))

	err := h.Handle(context.Background(), &entity.ScheduleTask{ID: "t1", Kind: entity.TaskScrape})
	assert.ErrorIs(t, err, ErrScrapeFailed)

	require.NoError(t, h.Handle(context.Background(), &entity.ScheduleTask{ID: "t2", Kind: entity.TaskScrape}))
	assert.Equal(t, []string{"http://s1", "http://s2"}, client.servers)
	assert.Equal(t, []string{"t2"}, client.scraped)
}

func TestFareCopyHandler_RunsExtractionForMarket(t *testing.T) {
	raw := &fakeRawRepo{}
	extractor := newTestExtractor(raw, newFakeRecordRepo(), nil)
	h := NewFareCopyHandler(extractor, 24*time.Hour, testLogger)
	h.now = fixedClock

	err := h.Handle(context.Background(), &entity.ScheduleTask{
		Kind:        entity.TaskFareCopy,
		HostCarrier: "HX",
		Origin:      "JFK",
		Destination: "LAX",
		ScraperID:   "s1",
		MaxStops:    1,
	})
	require.NoError(t, err)

	require.Len(t, raw.queries, 1)
	q := raw.queries[0]
	assert.Equal(t, "HX", q.HostCarrier)
	assert.Equal(t, "JFK", q.Origin)
	assert.Equal(t, "s1", q.Source)
	assert.Equal(t, mergeNow, q.ScrapedBefore)
	assert.Equal(t, mergeNow.Add(-24*time.Hour), q.ScrapedAfter)
}
