// internal/domain/entity/rate.go
package entity

import (
	"fare-pipeline/pkg/utils"
)

// RoundTripRate is a multiplier for one route. Carriers empty means route default.
type RoundTripRate struct {
	Rate     float64  `json:"rate"`
	Carriers []string `json:"carriers,omitempty"`
}

// RoundTripRateMap maps ORIGIN-DEST to its configured rates.
type RoundTripRateMap map[string][]RoundTripRate

// Lookup returns the carrier-scoped rate when one matches, else the route default, else 1.0.
func (m RoundTripRateMap) Lookup(origin, destination, carrier string) float64 {
	rates, ok := m[utils.RouteKey(origin, destination)]
	if !ok {
		return 1.0
	}
	for _, r := range rates {
		if len(r.Carriers) > 0 && utils.ContainsCode(r.Carriers, carrier) {
			return r.Rate
		}
	}
	for _, r := range rates {
		if len(r.Carriers) == 0 {
			return r.Rate
		}
	}
	return 1.0
}

// CurrencyTable is the read-only currency snapshot of one host carrier for a run.
type CurrencyTable struct {
	HostCarrier      string
	HostDefault      string
	Reference        string
	MarketCurrencies map[string]string  // ORIGIN-DEST -> currency
	ExchangeRates    map[string]float64 // "FROM/TO" -> multiplier
}

// TargetCurrency resolves market currency, then host default, then the reference currency.
func (c *CurrencyTable) TargetCurrency(origin, destination string) string {
	if cur, ok := c.MarketCurrencies[utils.RouteKey(origin, destination)]; ok && cur != "" {
		return cur
	}
	if c.HostDefault != "" {
		return c.HostDefault
	}
	if c.Reference != "" {
		return c.Reference
	}
	return utils.REFERENCE_CURRENCY
}

// ExchangeRate returns the multiplier converting from -> to: identity, direct pair,
// inverse pair, then triangulation through the reference currency.
func (c *CurrencyTable) ExchangeRate(from, to string) (float64, bool) {
	if from == to {
		return 1.0, true
	}
	if r, ok := c.pair(from, to); ok {
		return r, true
	}
	ref := c.Reference
	if ref == "" {
		ref = utils.REFERENCE_CURRENCY
	}
	if from == ref || to == ref {
		return 0, false
	}
	a, okA := c.pair(from, ref)
	b, okB := c.pair(ref, to)
	if okA && okB {
		return a * b, true
	}
	return 0, false
}

func (c *CurrencyTable) pair(from, to string) (float64, bool) {
	if r, ok := c.ExchangeRates[PairKey(from, to)]; ok && r > 0 {
		return r, true
	}
	if r, ok := c.ExchangeRates[PairKey(to, from)]; ok && r > 0 {
		return 1 / r, true
	}
	return 0, false
}

// PairKey formats the ExchangeRates key.
func PairKey(from, to string) string {
	return from + "/" + to
}
