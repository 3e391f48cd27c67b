package repository

import (
	"context"
	"errors"
	"strings"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/utils"

	"gorm.io/gorm"
)

// GormRateRepository implements the RateRepository interface
type GormRateRepository struct {
	db                *gorm.DB
	referenceCurrency string
}

// NewGormRateRepository creates a new GORM rate repository
func NewGormRateRepository(db *gorm.DB, referenceCurrency string) repository.RateRepository {
	return &GormRateRepository{
		db:                db,
		referenceCurrency: referenceCurrency,
	}
}

// RoundTripRates GORM model for database mapping
type RoundTripRates struct {
	gorm.Model
	HostCarrier string  `gorm:"column:host_carrier;index"`
	Origin      string  `gorm:"column:origin"`
	Destination string  `gorm:"column:destination"`
	Carriers    string  `gorm:"column:carriers"` // comma separated, empty for the route default
	Rate        float64 `gorm:"column:rate"`
}

// TableName overrides the default table name
func (RoundTripRates) TableName() string {
	return "round_trip_rates"
}

// MarketCurrencies GORM model for database mapping
type MarketCurrencies struct {
	gorm.Model
	HostCarrier string `gorm:"column:host_carrier;index"`
	Origin      string `gorm:"column:origin"`
	Destination string `gorm:"column:destination"`
	Currency    string `gorm:"column:currency"`
}

// TableName overrides the default table name
func (MarketCurrencies) TableName() string {
	return "market_currencies"
}

// ExchangeRates GORM model for database mapping
type ExchangeRates struct {
	gorm.Model
	FromCurrency string  `gorm:"column:from_currency"`
	ToCurrency   string  `gorm:"column:to_currency"`
	Rate         float64 `gorm:"column:rate"`
}

// TableName overrides the default table name
func (ExchangeRates) TableName() string {
	return "exchange_rates"
}

// RoundTripRates loads the round-trip rate map of a host carrier
func (r *GormRateRepository) RoundTripRates(ctx context.Context, hostCarrier string) (entity.RoundTripRateMap, error) {
	var rows []RoundTripRates
	result := r.db.WithContext(ctx).Where("host_carrier = ?", hostCarrier).Order("id").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return buildRateMap(rows), nil
}

// CurrencyTable loads market currencies and exchange rates for a host carrier
func (r *GormRateRepository) CurrencyTable(ctx context.Context, hostCarrier string) (*entity.CurrencyTable, error) {
	var host HostCarriers
	result := r.db.WithContext(ctx).Where("code = ?", hostCarrier).First(&host)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	var currencies []MarketCurrencies
	if err := r.db.WithContext(ctx).Where("host_carrier = ?", hostCarrier).Find(&currencies).Error; err != nil {
		return nil, err
	}

	var fx []ExchangeRates
	if err := r.db.WithContext(ctx).Order("id").Find(&fx).Error; err != nil {
		return nil, err
	}

	return buildCurrencyTable(hostCarrier, host.DefaultCurrency, r.referenceCurrency, currencies, fx), nil
}

func buildRateMap(rows []RoundTripRates) entity.RoundTripRateMap {
	rates := make(entity.RoundTripRateMap)
	for _, row := range rows {
		key := utils.RouteKey(row.Origin, row.Destination)
		rates[key] = append(rates[key], entity.RoundTripRate{
			Rate:     row.Rate,
			Carriers: utils.SplitCodes(row.Carriers),
		})
	}
	return rates
}

func buildCurrencyTable(host, hostDefault, reference string, currencies []MarketCurrencies, fx []ExchangeRates) *entity.CurrencyTable {
	table := &entity.CurrencyTable{
		HostCarrier:      host,
		HostDefault:      strings.ToUpper(hostDefault),
		Reference:        strings.ToUpper(reference),
		MarketCurrencies: make(map[string]string, len(currencies)),
		ExchangeRates:    make(map[string]float64, len(fx)),
	}
	for _, c := range currencies {
		table.MarketCurrencies[utils.RouteKey(c.Origin, c.Destination)] = strings.ToUpper(c.Currency)
	}
	for _, r := range fx {
		table.ExchangeRates[entity.PairKey(strings.ToUpper(r.FromCurrency), strings.ToUpper(r.ToCurrency))] = r.Rate
	}
	return table
}
