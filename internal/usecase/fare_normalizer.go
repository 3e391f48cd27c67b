package usecase

import (
	"github.com/shopspring/decimal"

	"fare-pipeline/internal/domain/entity"
)

// FareNormalizer converts fares to the host's base currency and applies the
// round-trip rate. It holds read-only snapshots and has no side effects.
type FareNormalizer struct {
	rates      entity.RoundTripRateMap
	currencies *entity.CurrencyTable
}

// NewFareNormalizer creates a normalizer over one run's rate snapshots
func NewFareNormalizer(rates entity.RoundTripRateMap, currencies *entity.CurrencyTable) *FareNormalizer {
	if rates == nil {
		rates = entity.RoundTripRateMap{}
	}
	if currencies == nil {
		currencies = &entity.CurrencyTable{}
	}
	return &FareNormalizer{
		rates:      rates,
		currencies: currencies,
	}
}

// RoundTripRate returns the rate applied to carrier on origin-destination
func (n *FareNormalizer) RoundTripRate(origin, destination, carrier string) float64 {
	return n.rates.Lookup(origin, destination, carrier)
}

// Normalize converts every fare of the bundle. It returns the converted fares and the
// number dropped because no exchange rate reaches the target currency.
func (n *FareNormalizer) Normalize(bundle *entity.ScrapedFareBundle) ([]entity.NormalizedFare, int) {
	carrier := bundle.Carrier()

	out := make([]entity.NormalizedFare, 0, len(bundle.Fares))
	dropped := 0
	for _, obs := range bundle.Fares {
		fare := entity.NormalizedFare{
			CarrierCode: carrier,
			Cabin:       obs.Cabin,
			ClassCode:   obs.ClassCode,
			FareFamily:  obs.FareFamily,
			FareAmount:  obs.FareAmount,
			BaseFare:    obs.BaseFare,
			TaxAmount:   obs.TaxAmount,
			Surcharge:   obs.Surcharge,
			Currency:    obs.Currency,
			ScrapedAt:   obs.ScrapedAt,
			Source:      obs.Source,
			PointOfSale: obs.PointOfSale,
		}
		normalized, ok := n.NormalizeFare(bundle.Origin, bundle.Destination, fare)
		if !ok {
			dropped++
			continue
		}
		out = append(out, normalized)
	}
	return out, dropped
}

// NormalizeFare applies rate and currency conversion to one fare. A fare that already
// carries the same applied rate and target currency comes back unchanged.
func (n *FareNormalizer) NormalizeFare(origin, destination string, fare entity.NormalizedFare) (entity.NormalizedFare, bool) {
	rate := n.rates.Lookup(origin, destination, fare.CarrierCode)
	target := n.currencies.TargetCurrency(origin, destination)

	fx, ok := n.currencies.ExchangeRate(fare.Currency, target)
	if !ok {
		return fare, false
	}

	multiplier := decimal.NewFromFloat(rate)
	if fare.AppliedRate != 0 {
		// only the difference to the previously applied rate is still owed
		multiplier = multiplier.Div(decimal.NewFromFloat(fare.AppliedRate))
	}
	factor := multiplier.Mul(decimal.NewFromFloat(fx))

	fare.FareAmount = convertAmount(fare.FareAmount, factor)
	fare.BaseFare = convertAmount(fare.BaseFare, factor)
	fare.TaxAmount = convertAmount(fare.TaxAmount, factor)
	fare.Surcharge = convertAmount(fare.Surcharge, factor)
	fare.Currency = target
	fare.AppliedRate = rate
	return fare, true
}

func convertAmount(amount float64, factor decimal.Decimal) float64 {
	v, _ := decimal.NewFromFloat(amount).Mul(factor).Round(2).Float64()
	return v
}
