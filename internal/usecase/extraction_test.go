package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-pipeline/internal/domain/entity"
)

func testBundle(key string, carriers []string, fares ...entity.FareObservation) *entity.ScrapedFareBundle {
	legs := make([]entity.ItineraryLeg, 0, len(carriers))
	for _, c := range carriers {
		legs = append(legs, entity.ItineraryLeg{OperatingCarrier: c, MarketingCarrier: c})
	}
	return &entity.ScrapedFareBundle{
		FlightKey:    key,
		HostCarrier:  "HX",
		CarrierCode:  carriers[0],
		FlightNumber: "100",
		TripType:     entity.OneWay,
		Origin:       "JFK",
		Destination:  "LAX",
		OutboundDate: ts("2026-10-30T00:00:00Z"),
		Itineraries:  []entity.Itinerary{{Legs: legs}},
		Fares:        fares,
		Source:       "scraper-a",
	}
}

func fareAt(cabin, class string, amount float64, at string) entity.FareObservation {
	f := entity.FareObservation{
		Cabin:      cabin,
		ClassCode:  class,
		FareAmount: amount,
		BaseFare:   amount,
		Currency:   "USD",
		Source:     "scraper-a",
	}
	if at != "" {
		f.ScrapedAt = tsPtr(at)
	}
	return f
}

func windowCriteria() ExtractionCriteria {
	return ExtractionCriteria{
		HostCarrier:   "hx",
		ScrapedAfter:  ts("2026-10-15T00:00:00Z"),
		ScrapedBefore: ts("2026-10-17T00:00:00Z"),
	}
}

func TestNewExtractionCriteria(t *testing.T) {
	c, err := NewExtractionCriteria(windowCriteria())
	require.NoError(t, err)
	assert.Equal(t, "HX", c.HostCarrier)
	assert.False(t, c.IsBatchMode())

	_, err = NewExtractionCriteria(ExtractionCriteria{HostCarrier: "HX", BatchID: "b-1"})
	assert.NoError(t, err)

	_, err = NewExtractionCriteria(ExtractionCriteria{HostCarrier: "HX", BatchID: "b-1", Origin: "JFK"})
	assert.ErrorIs(t, err, ErrConflictingCriteria)

	bad := windowCriteria()
	bad.ScrapedAfter, bad.ScrapedBefore = bad.ScrapedBefore, bad.ScrapedAfter
	_, err = NewExtractionCriteria(bad)
	assert.ErrorIs(t, err, ErrInvalidCriteria)

	_, err = NewExtractionCriteria(ExtractionCriteria{ScrapedAfter: ts("2026-10-15T00:00:00Z")})
	assert.ErrorIs(t, err, ErrInvalidCriteria)
}

func TestExtractionCriteria_QueryInBatchModeCarriesOnlyBatch(t *testing.T) {
	c, err := NewExtractionCriteria(ExtractionCriteria{HostCarrier: "HX", BatchID: "load-7"})
	require.NoError(t, err)

	q := c.Query()
	assert.Equal(t, "load-7", q.BatchID)
	assert.True(t, q.ScrapedAfter.IsZero())
	assert.Empty(t, q.Origin)
}

func TestAdmissionPolicy(t *testing.T) {
	policy := AdmissionPolicy{MaxConnections: 2}

	reason, ok := policy.Admit(testBundle("k", []string{"XX", "XX", "XX"}))
	assert.False(t, ok)
	assert.Equal(t, SkipConnections, reason)

	reason, ok = policy.Admit(testBundle("k", []string{"XX", "YY"}))
	assert.False(t, ok)
	assert.Equal(t, SkipMixedCarrier, reason)

	_, ok = policy.Admit(testBundle("k", []string{"XX", "XX"}))
	assert.True(t, ok)

	include := AdmissionPolicy{IncludeCarriers: []string{"AA"}}
	reason, ok = include.Admit(testBundle("k", []string{"XX"}))
	assert.False(t, ok)
	assert.Equal(t, SkipCarrierIncluded, reason)

	exclude := AdmissionPolicy{ExcludeCarriers: []string{"XX"}}
	reason, ok = exclude.Admit(testBundle("k", []string{"XX"}))
	assert.False(t, ok)
	assert.Equal(t, SkipCarrierExcluded, reason)
}

func TestExtractionCursor_CountsRejections(t *testing.T) {
	raw := &fakeRawRepo{
		bundles: []*entity.ScrapedFareBundle{
			testBundle("a", []string{"XX", "XX", "XX"}),
			testBundle("b", []string{"XX"}),
			testBundle("c", []string{"XX"}),
			testBundle("d", []string{"XX", "YY"}),
		},
		bad: map[int]bool{2: true},
	}
	criteria, err := NewExtractionCriteria(windowCriteria())
	require.NoError(t, err)
	criteria.Admission.MaxConnections = 2

	stats := NewRunStats()
	var seen []string
	err = NewExtractionCursor(raw, criteria, stats, testLogger).Each(context.Background(), func(b *entity.ScrapedFareBundle) error {
		seen = append(seen, b.FlightKey)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, seen)
	assert.EqualValues(t, 4, stats.Processed.Load())
	assert.EqualValues(t, 1, stats.Admitted.Load())
	assert.EqualValues(t, 1, stats.Skipped(SkipConnections))
	assert.EqualValues(t, 1, stats.Skipped(SkipMixedCarrier))
	assert.EqualValues(t, 1, stats.Skipped(SkipUndecodable))
}

func TestExtractionCursor_FiltersNestedFares(t *testing.T) {
	raw := &fakeRawRepo{
		bundles: []*entity.ScrapedFareBundle{
			testBundle("a", []string{"XX"},
				fareAt("Y", "B", 100, "2026-10-16T08:00:00Z"),
				fareAt("Y", "B", 110, "2026-10-10T08:00:00Z"),
				fareAt("Y", "M", 120, ""),
			),
		},
	}
	criteria, err := NewExtractionCriteria(windowCriteria())
	require.NoError(t, err)

	var fares []entity.FareObservation
	err = NewExtractionCursor(raw, criteria, NewRunStats(), testLogger).Each(context.Background(), func(b *entity.ScrapedFareBundle) error {
		fares = b.Fares
		return nil
	})
	require.NoError(t, err)
	require.Len(t, fares, 2)
	assert.Equal(t, 100.0, fares[0].FareAmount)
	assert.Nil(t, fares[1].ScrapedAt)
}
