package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/pkg/logger"
)

func TestHTTPScraperClient_Scrape(t *testing.T) {
	var got scrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	c := NewHTTPScraperClient(5*time.Second, "secret", logger.NewNopLogger())
	err := c.Scrape(context.Background(), srv.URL+"/", &entity.ScheduleTask{
		ID:            "t1",
		Kind:          entity.TaskScrape,
		HostCarrier:   "HX",
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: &day,
		ScraperID:     "s1",
		MaxStops:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", got.DepartureDate)
	assert.Equal(t, "s1", got.Scraper)
	assert.Equal(t, 1, got.MaxStops)
}

func TestHTTPScraperClient_RequiresSuccessMarker(t *testing.T) {
	responses := map[string]struct {
		code int
		body string
	}{
		"/api/v1/stages/extract-schedule": {http.StatusOK, `{"status":"queued"}`},
		"/api/v1/stages/re-optimize":      {http.StatusOK, `not json`},
		"/api/v1/scrape":                  {http.StatusBadGateway, `upstream down`},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := responses[r.URL.Path]
		w.WriteHeader(resp.code)
		w.Write([]byte(resp.body))
	}))
	defer srv.Close()

	c := NewHTTPScraperClient(5*time.Second, "", logger.NewNopLogger())
	ctx := context.Background()

	assert.Error(t, c.RunStage(ctx, srv.URL, &entity.ScheduleTask{Kind: entity.TaskExtractSchedule}))
	assert.Error(t, c.RunStage(ctx, srv.URL, &entity.ScheduleTask{Kind: entity.TaskReoptimize}))

	err := c.Scrape(ctx, srv.URL, &entity.ScheduleTask{Kind: entity.TaskScrape})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
