package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-pipeline/internal/domain/entity"
)

func testCurrencies() *entity.CurrencyTable {
	return &entity.CurrencyTable{
		HostCarrier: "HX",
		HostDefault: "USD",
		Reference:   "USD",
		MarketCurrencies: map[string]string{
			"CDG-FRA": "EUR",
		},
		ExchangeRates: map[string]float64{
			entity.PairKey("EUR", "USD"): 1.1,
		},
	}
}

func TestFareNormalizer_ConvertsAndAppliesRate(t *testing.T) {
	rates := entity.RoundTripRateMap{
		"JFK-LAX": {{Rate: 1.5}, {Rate: 2, Carriers: []string{"YY"}}},
	}
	n := NewFareNormalizer(rates, testCurrencies())

	b := testBundle("k", []string{"XX"}, entity.FareObservation{
		Cabin:      "Y",
		FareAmount: 100,
		BaseFare:   80,
		TaxAmount:  20,
		Currency:   "EUR",
		ScrapedAt:  tsPtr("2026-10-16T08:00:00Z"),
	})

	fares, dropped := n.Normalize(b)
	require.Len(t, fares, 1)
	assert.Zero(t, dropped)

	f := fares[0]
	assert.Equal(t, "USD", f.Currency)
	assert.Equal(t, 165.0, f.FareAmount)
	assert.Equal(t, 132.0, f.BaseFare)
	assert.Equal(t, 33.0, f.TaxAmount)
	assert.Equal(t, 1.5, f.AppliedRate)
	assert.Equal(t, "XX", f.CarrierCode)

	assert.Equal(t, 2.0, n.RoundTripRate("JFK", "LAX", "YY"))
	assert.Equal(t, 1.0, n.RoundTripRate("BOS", "SFO", "XX"))
}

func TestFareNormalizer_IsIdempotent(t *testing.T) {
	rates := entity.RoundTripRateMap{"JFK-LAX": {{Rate: 1.37}}}
	n := NewFareNormalizer(rates, testCurrencies())

	b := testBundle("k", []string{"XX"}, entity.FareObservation{
		Cabin:      "Y",
		FareAmount: 123.45,
		BaseFare:   99.99,
		TaxAmount:  23.46,
		Surcharge:  0.01,
		Currency:   "EUR",
	})

	once, _ := n.Normalize(b)
	require.Len(t, once, 1)

	twice, ok := n.NormalizeFare(b.Origin, b.Destination, once[0])
	require.True(t, ok)
	assert.Equal(t, once[0], twice)
}

func TestFareNormalizer_DropsUnconvertibleFares(t *testing.T) {
	n := NewFareNormalizer(nil, testCurrencies())

	b := testBundle("k", []string{"XX"},
		entity.FareObservation{FareAmount: 100, Currency: "JPY"},
		entity.FareObservation{FareAmount: 100, Currency: "USD"},
	)
	fares, dropped := n.Normalize(b)
	assert.Len(t, fares, 1)
	assert.Equal(t, 1, dropped)
}
