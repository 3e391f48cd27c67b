package repository

import (
	"context"
	"errors"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"

	"gorm.io/gorm"
)

// GormHostCarrierRepository implements the HostCarrierRepository interface
type GormHostCarrierRepository struct {
	db *gorm.DB
}

// NewGormHostCarrierRepository creates a new GORM host carrier repository
func NewGormHostCarrierRepository(db *gorm.DB) repository.HostCarrierRepository {
	return &GormHostCarrierRepository{
		db: db,
	}
}

// HostCarriers GORM model for database mapping
type HostCarriers struct {
	ID              uint   `gorm:"primaryKey"`
	Code            string `gorm:"column:code;unique"`
	Name            string `gorm:"column:name"`
	ScrapingEnabled bool   `gorm:"column:scraping_enabled"`
	DefaultCurrency string `gorm:"column:default_currency"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// TableName overrides the default table name
func (HostCarriers) TableName() string {
	return "m_host_carriers"
}

func (m HostCarriers) toEntity() *entity.HostCarrier {
	return &entity.HostCarrier{
		ID:              m.ID,
		Code:            m.Code,
		Name:            m.Name,
		ScrapingEnabled: m.ScrapingEnabled,
		DefaultCurrency: m.DefaultCurrency,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// GetByCode finds a host carrier by code. Returns nil, nil when unknown.
func (r *GormHostCarrierRepository) GetByCode(ctx context.Context, code string) (*entity.HostCarrier, error) {
	var host HostCarriers
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&host)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return host.toEntity(), nil
}

// ListScrapingEnabled returns every host carrier with scraping switched on, by code
func (r *GormHostCarrierRepository) ListScrapingEnabled(ctx context.Context) ([]*entity.HostCarrier, error) {
	var hosts []HostCarriers
	result := r.db.WithContext(ctx).Where("scraping_enabled = ?", true).Order("code").Find(&hosts)
	if result.Error != nil {
		return nil, result.Error
	}

	entities := make([]*entity.HostCarrier, 0, len(hosts))
	for _, h := range hosts {
		entities = append(entities, h.toEntity())
	}
	return entities, nil
}
