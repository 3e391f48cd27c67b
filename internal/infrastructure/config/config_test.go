package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BATCH_SIZE", "")
	t.Setenv("LOOKBACK_HOURS", "")
	t.Setenv("QUEUE_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, 36*time.Hour, cfg.Lookback)
	assert.Equal(t, QueueRedis, cfg.QueueBackend)
	assert.Equal(t, "USD", cfg.ReferenceCurrency)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SCRAPER_SERVERS", "http://s1:8000, ,http://s2:8000")
	t.Setenv("JOBS_PER_SERVER", "4")
	t.Setenv("SKIP_REOPTIMIZE", "true")
	t.Setenv("SOLD_OUT_AFTER_HOURS", "1.5")
	t.Setenv("SCRAPE_TIMEOUT", "90s")
	t.Setenv("QUEUE_BACKEND", "Kafka")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://s1:8000", "http://s2:8000"}, cfg.ScraperServers)
	assert.Equal(t, 4, cfg.JobsPerServer)
	assert.True(t, cfg.SkipReoptimize)
	assert.Equal(t, 90*time.Minute, cfg.SoldOutAfter)
	assert.Equal(t, 90*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, QueueKafka, cfg.QueueBackend)
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv("SCRAPER_SERVERS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true))

	cfg.BatchSize = 0
	cfg.QueueBackend = "sqs"
	err = cfg.Validate(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
	assert.Contains(t, err.Error(), "sqs")
}
