package repository

import (
	"context"
	"time"

	"fare-pipeline/internal/domain/entity"
)

// BulkWriteResult summarizes one bulk upsert
type BulkWriteResult struct {
	Inserted int64
	Updated  int64
}

// FlightFareRecordRepository defines the interface for flight fare record operations
type FlightFareRecordRepository interface {
	// FindWithRecentHistory returns the record with HistoricalFares restricted to entries
	// scraped at or after since. Returns nil, nil when the flight key is unknown.
	FindWithRecentHistory(ctx context.Context, flightKey string, since time.Time) (*entity.FlightFareRecord, error)
	// BulkUpsert applies every update in one round trip. Each update replaces the
	// history window starting at its WindowStart and leaves older entries untouched.
	BulkUpsert(ctx context.Context, updates []*entity.FlightFareUpdate) (BulkWriteResult, error)
}
