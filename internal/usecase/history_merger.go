package usecase

import (
	"sort"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/pkg/utils"
)

// DefaultLookback is the trailing window re-merged on every pass
const DefaultLookback = 36 * time.Hour

// HistoryMerger folds a pass's fares into a flight's recent history and classifies
// the flight's state.
type HistoryMerger struct {
	lookback     time.Duration
	soldOutAfter time.Duration
	now          func() time.Time
}

// NewHistoryMerger creates a merger. now is injectable for tests; nil means time.Now.
func NewHistoryMerger(lookback, soldOutAfter time.Duration, now func() time.Time) *HistoryMerger {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if now == nil {
		now = time.Now
	}
	return &HistoryMerger{
		lookback:     lookback,
		soldOutAfter: soldOutAfter,
		now:          now,
	}
}

// WindowStart is the oldest scrape time still reconsidered by a merge at now
func (m *HistoryMerger) WindowStart() time.Time {
	return m.now().Add(-m.lookback)
}

// MergeInput is everything the merger needs for one flight key
type MergeInput struct {
	Prior         *entity.FlightFareRecord // window-only history, nil on first sighting
	Bundle        *entity.ScrapedFareBundle
	Fares         []entity.NormalizedFare
	Minimums      []entity.MinimumFare
	RoundTripRate float64
}

// MergeDrops counts incoming fares left out of a merge
type MergeDrops struct {
	NoScrapeTime int
	// BeforeWindow fares would land behind the replaced window, where stored history
	// is never deduplicated.
	BeforeWindow int
}

// Merge builds the pending update for one flight key.
func (m *HistoryMerger) Merge(in MergeInput) (*entity.FlightFareUpdate, MergeDrops) {
	now := m.now()
	windowStart := now.Add(-m.lookback)
	outbound := in.Bundle.OutboundDate

	combined := make([]entity.HistoricalFare, 0, len(in.Fares))
	var dropped MergeDrops
	for _, f := range in.Fares {
		if f.ScrapedAt == nil || f.ScrapedAt.IsZero() {
			dropped.NoScrapeTime++
			continue
		}
		if f.ScrapedAt.Before(windowStart) {
			dropped.BeforeWindow++
			continue
		}
		combined = append(combined, entity.HistoricalFare{
			Cabin:           f.Cabin,
			ClassCode:       f.ClassCode,
			FareFamily:      f.FareFamily,
			FareAmount:      f.FareAmount,
			BaseFare:        f.BaseFare,
			TaxAmount:       f.TaxAmount,
			Surcharge:       f.Surcharge,
			Currency:        f.Currency,
			DaysToDeparture: utils.DaysBetween(*f.ScrapedAt, outbound),
			Source:          f.Source,
			PointOfSale:     f.PointOfSale,
			ScrapedAt:       *f.ScrapedAt,
		})
	}

	if in.Prior != nil {
		for _, h := range in.Prior.HistoricalFares {
			if h.ScrapedAt.IsZero() || h.ScrapedAt.Before(windowStart) {
				continue
			}
			h.DaysToDeparture = utils.DaysBetween(h.ScrapedAt, outbound)
			combined = append(combined, h)
		}
	}

	merged := DeduplicateHistory(combined)

	record := m.buildRecord(in, now)
	record.HistoricalFares = merged
	record.State = m.ClassifyState(record.MinimumFares)

	return &entity.FlightFareUpdate{
		Record:       record,
		WindowStart:  windowStart,
		MergedWindow: merged,
		IsNew:        in.Prior == nil,
	}, dropped
}

// ClassifyState is SOLD_OUT when the latest minimum fare is older than the staleness
// threshold, or when there is no minimum fare at all.
func (m *HistoryMerger) ClassifyState(minimums []entity.MinimumFare) entity.FareState {
	r := entity.FlightFareRecord{MinimumFares: minimums}
	latest, ok := r.LatestMinimumFare()
	if !ok {
		return entity.StateSoldOut
	}
	if m.now().Sub(latest.ScrapedAt) > m.soldOutAfter {
		return entity.StateSoldOut
	}
	return entity.StateAvailable
}

func (m *HistoryMerger) buildRecord(in MergeInput, now time.Time) *entity.FlightFareRecord {
	b := in.Bundle
	record := &entity.FlightFareRecord{
		FlightKey:     b.FlightKey,
		HostCarrier:   b.HostCarrier,
		CarrierCode:   b.Carrier(),
		FlightNumber:  b.FlightNumber,
		TripType:      b.TripType,
		Origin:        b.Origin,
		Destination:   b.Destination,
		OutboundDate:  b.OutboundDate,
		ReturnDate:    b.ReturnDate,
		DayOfWeek:     utils.WeekdayIndex(b.OutboundDate),
		MinimumFares:  in.Minimums,
		RoundTripRate: in.RoundTripRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Prior != nil {
		record.ID = in.Prior.ID
		record.CreatedAt = in.Prior.CreatedAt
		if len(in.Minimums) == 0 {
			record.MinimumFares = in.Prior.MinimumFares
		}
	}
	return record
}

// DeduplicateHistory orders entries newest first and keeps the first entry of every
// (cabin, currency, class code, days to departure, source) key.
func DeduplicateHistory(entries []entity.HistoricalFare) []entity.HistoricalFare {
	sorted := make([]entity.HistoricalFare, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScrapedAt.After(sorted[j].ScrapedAt)
	})

	seen := make(map[entity.DedupKey]bool, len(sorted))
	out := make([]entity.HistoricalFare, 0, len(sorted))
	for _, h := range sorted {
		key := h.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}
