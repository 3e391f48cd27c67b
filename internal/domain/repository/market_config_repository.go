package repository

import (
	"context"

	"fare-pipeline/internal/domain/entity"
)

// MarketConfigRepository reads the scraping configuration of a host carrier.
// Markets are returned in configured order with schedules validated.
type MarketConfigRepository interface {
	ListMarkets(ctx context.Context, hostCarrier string) ([]entity.ScraperMarket, error)
}
