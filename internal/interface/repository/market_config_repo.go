package repository

import (
	"context"
	"fmt"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/utils"

	"gorm.io/gorm"
)

// GormMarketConfigRepository implements the MarketConfigRepository interface
type GormMarketConfigRepository struct {
	db *gorm.DB
}

// NewGormMarketConfigRepository creates a new GORM market configuration repository
func NewGormMarketConfigRepository(db *gorm.DB) repository.MarketConfigRepository {
	return &GormMarketConfigRepository{
		db: db,
	}
}

// ScraperMarkets GORM model for database mapping
type ScraperMarkets struct {
	gorm.Model
	HostCarrier  string                   `gorm:"column:host_carrier;index"`
	Origin       string                   `gorm:"column:origin"`
	Destination  string                   `gorm:"column:destination"`
	StartOffset  int                      `gorm:"column:start_offset"`
	NumberOfDays int                      `gorm:"column:number_of_days"`
	Direction    string                   `gorm:"column:direction"`
	StayDuration int                      `gorm:"column:stay_duration"`
	Position     int                      `gorm:"column:position"`
	Enabled      bool                     `gorm:"column:enabled"`
	Schedules    []ScraperMarketSchedules `gorm:"foreignKey:MarketID"`
	Scrapers     []MarketScrapers         `gorm:"foreignKey:MarketID"`
}

// TableName overrides the default table name
func (ScraperMarkets) TableName() string {
	return "scraper_markets"
}

// ScraperMarketSchedules GORM model for database mapping
type ScraperMarketSchedules struct {
	gorm.Model
	MarketID      uint             `gorm:"column:market_id;index"`
	EffectiveFrom time.Time        `gorm:"column:effective_from"`
	EffectiveTo   *time.Time       `gorm:"column:effective_to"`
	Frequency     string           `gorm:"column:frequency"`
	Position      int              `gorm:"column:position"`
	Scrapers      []MarketScrapers `gorm:"foreignKey:ScheduleID"`
}

// TableName overrides the default table name
func (ScraperMarketSchedules) TableName() string {
	return "scraper_market_schedules"
}

// MarketScrapers GORM model for database mapping. A row belongs either to a schedule
// or, with schedule_id NULL, directly to a market.
type MarketScrapers struct {
	gorm.Model
	MarketID         *uint  `gorm:"column:market_id;index"`
	ScheduleID       *uint  `gorm:"column:schedule_id;index"`
	ScraperID        string `gorm:"column:scraper_id"`
	IncludedCarriers string `gorm:"column:included_carriers"` // comma separated
	MaxStops         int    `gorm:"column:max_stops"`
	MaxResults       int    `gorm:"column:max_results"`
	Currency         string `gorm:"column:currency"`
	Position         int    `gorm:"column:position"`
}

// TableName overrides the default table name
func (MarketScrapers) TableName() string {
	return "market_scrapers"
}

// ListMarkets loads the enabled markets of a host carrier in configured order
func (r *GormMarketConfigRepository) ListMarkets(ctx context.Context, hostCarrier string) ([]entity.ScraperMarket, error) {
	byPosition := func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }

	var markets []ScraperMarkets
	result := r.db.WithContext(ctx).
		Preload("Schedules", byPosition).
		Preload("Schedules.Scrapers", byPosition).
		Preload("Scrapers", func(db *gorm.DB) *gorm.DB {
			return db.Where("schedule_id IS NULL").Order("position, id")
		}).
		Where("host_carrier = ? AND enabled = ?", hostCarrier, true).
		Order("position, id").
		Find(&markets)
	if result.Error != nil {
		return nil, result.Error
	}

	out := make([]entity.ScraperMarket, 0, len(markets))
	for _, m := range markets {
		market, err := m.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, market)
	}
	return out, nil
}

func (m ScraperMarkets) toEntity() (entity.ScraperMarket, error) {
	market := entity.ScraperMarket{
		ID:           m.ID,
		HostCarrier:  m.HostCarrier,
		Origin:       m.Origin,
		Destination:  m.Destination,
		StartOffset:  m.StartOffset,
		NumberOfDays: m.NumberOfDays,
		Direction:    m.Direction,
		StayDuration: m.StayDuration,
		Scrapers:     toScraperSettings(m.Scrapers),
	}

	for _, s := range m.Schedules {
		schedule, err := entity.NewScraperMarketSchedule(
			s.EffectiveFrom,
			s.EffectiveTo,
			s.Frequency,
			toScraperSettings(s.Scrapers),
		)
		if err != nil {
			return market, fmt.Errorf("market %s schedule %d: %w", market.Market(), s.ID, err)
		}
		market.Schedules = append(market.Schedules, schedule)
	}
	return market, nil
}

func toScraperSettings(rows []MarketScrapers) []entity.ScraperSettings {
	out := make([]entity.ScraperSettings, 0, len(rows))
	for _, s := range rows {
		out = append(out, entity.ScraperSettings{
			ScraperID:        s.ScraperID,
			IncludedCarriers: utils.SplitCodes(s.IncludedCarriers),
			MaxStops:         s.MaxStops,
			MaxResults:       s.MaxResults,
			Currency:         s.Currency,
		})
	}
	return out
}
