package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
)

func stageValue(t *testing.T, stage bson.D, name string) interface{} {
	t.Helper()
	require.Len(t, stage, 1)
	require.Equal(t, name, stage[0].Key)
	return stage[0].Value
}

func lookup(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestBuildRawFarePipeline_BatchMode(t *testing.T) {
	p := buildRawFarePipeline(repository.RawFareQuery{HostCarrier: "HX", BatchID: "load-1", Origin: "JFK"})

	require.Len(t, p, 2)
	match := stageValue(t, p[0], "$match").(bson.D)
	assert.Equal(t, bson.D{{Key: "hostCarrier", Value: "HX"}, {Key: "loadingBatchId", Value: "load-1"}}, match)
}

func TestBuildRawFarePipeline_WindowAndFilters(t *testing.T) {
	after := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	before := after.Add(24 * time.Hour)

	p := buildRawFarePipeline(repository.RawFareQuery{
		HostCarrier:   "HX",
		ScrapedAfter:  after,
		ScrapedBefore: before,
		Origin:        "JFK",
		Source:        "s1",
		StayDuration:  7,
	})
	require.Len(t, p, 3)

	match := stageValue(t, p[0], "$match").(bson.D)
	origin, ok := lookup(match, "origin")
	require.True(t, ok)
	assert.Equal(t, "JFK", origin)
	_, ok = lookup(match, "destination")
	assert.False(t, ok)
	stay, ok := lookup(match, "stayDuration")
	require.True(t, ok)
	assert.Equal(t, 7, stay)

	fares, ok := lookup(match, "fares")
	require.True(t, ok)
	elem := fares.(bson.D)[0].Value.(bson.D)
	src, ok := lookup(elem, "source")
	require.True(t, ok)
	assert.Equal(t, "s1", src)

	set := stageValue(t, p[1], "$set").(bson.D)
	assert.Equal(t, "fares", set[0].Key)
	stageValue(t, p[2], "$sort")
}

func TestUpsertModel_ReplacesWindowInOneUpdate(t *testing.T) {
	windowStart := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	now := windowStart.Add(36 * time.Hour)
	merged := []entity.HistoricalFare{{Cabin: "Y", FareAmount: 100, ScrapedAt: now}}

	model := upsertModel(&entity.FlightFareUpdate{
		Record:       &entity.FlightFareRecord{FlightKey: "XX1", State: entity.StateAvailable},
		WindowStart:  windowStart,
		MergedWindow: merged,
	}, now).(*mongo.UpdateOneModel)

	require.NotNil(t, model.Upsert)
	assert.True(t, *model.Upsert)
	assert.Equal(t, bson.D{{Key: "flightKey", Value: "XX1"}}, model.Filter)

	pipeline := model.Update.(mongo.Pipeline)
	require.Len(t, pipeline, 1)
	set := stageValue(t, pipeline[0], "$set").(bson.D)

	history, ok := lookup(set, "historicalFares")
	require.True(t, ok)
	parts := history.(bson.D)[0].Value.(bson.A)
	require.Len(t, parts, 2)

	filter := parts[0].(bson.D)[0].Value.(bson.D)
	cond, _ := lookup(filter, "cond")
	assert.Equal(t, bson.D{{Key: "$lt", Value: bson.A{"$$h.scrapedAt", windowStart}}}, cond)
	assert.Equal(t, bson.D{{Key: "$literal", Value: merged}}, parts[1])

	minimums, _ := lookup(set, "minimumFares")
	assert.Equal(t, bson.D{{Key: "$literal", Value: []entity.MinimumFare{}}}, minimums)
}

func TestRecentHistoryPipeline(t *testing.T) {
	since := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	p := recentHistoryPipeline("XX1", since)

	require.Len(t, p, 3)
	assert.Equal(t, bson.D{{Key: "flightKey", Value: "XX1"}}, stageValue(t, p[0], "$match"))
	assert.Equal(t, 1, stageValue(t, p[1], "$limit"))
}
