package repository

import (
	"context"

	"fare-pipeline/internal/domain/entity"
)

// ScraperClient calls a scraper server. A nil error means the server returned a
// definitive success marker.
type ScraperClient interface {
	Scrape(ctx context.Context, server string, task *entity.ScheduleTask) error
	RunStage(ctx context.Context, server string, task *entity.ScheduleTask) error
}
