package repository

import (
	"context"
	"time"

	"fare-pipeline/internal/domain/entity"
)

// RawFareQuery selects raw bundles. BatchID is exclusive with every other filter.
type RawFareQuery struct {
	HostCarrier   string
	ScrapedAfter  time.Time
	ScrapedBefore time.Time
	Origin        string
	Destination   string
	CarrierCode   string
	Source        string
	Direction     string
	StayDuration  int
	BatchID       string
}

// BundleCursor iterates raw bundles one at a time
type BundleCursor interface {
	Next(ctx context.Context) bool
	Decode(bundle *entity.ScrapedFareBundle) error
	Err() error
	Close(ctx context.Context) error
}

// RawFareRepository defines the interface for the raw scrape store
type RawFareRepository interface {
	Find(ctx context.Context, query RawFareQuery) (BundleCursor, error)
}
