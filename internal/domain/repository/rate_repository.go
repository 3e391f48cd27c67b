package repository

import (
	"context"

	"fare-pipeline/internal/domain/entity"
)

// RateRepository loads the read-only rate snapshots used by one extraction run
type RateRepository interface {
	RoundTripRates(ctx context.Context, hostCarrier string) (entity.RoundTripRateMap, error)
	CurrencyTable(ctx context.Context, hostCarrier string) (*entity.CurrencyTable, error)
}
