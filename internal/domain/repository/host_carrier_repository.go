package repository

import (
	"context"

	"fare-pipeline/internal/domain/entity"
)

// HostCarrierRepository defines the interface for host carrier operations
type HostCarrierRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.HostCarrier, error)
	ListScrapingEnabled(ctx context.Context) ([]*entity.HostCarrier, error)
}
