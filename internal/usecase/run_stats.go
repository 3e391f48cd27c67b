package usecase

import (
	"sort"
	"sync"
	"sync/atomic"
)

// SkipReason names why the admission filter rejected a bundle
type SkipReason string

const (
	SkipConnections     SkipReason = "connections"
	SkipMixedCarrier    SkipReason = "mixed_carrier"
	SkipCarrierIncluded SkipReason = "carrier_not_included"
	SkipCarrierExcluded SkipReason = "carrier_excluded"
	SkipUndecodable     SkipReason = "undecodable"
)

// Fare drop reasons
const (
	DropNoScrapeTime = "no_scrape_time"
	DropNoFXRate     = "no_fx_rate"
	DropBeforeWindow = "before_window"
)

// RunStats accumulates the counters of one extraction run. A new value is created per
// run; counters are safe for concurrent use.
type RunStats struct {
	Processed  atomic.Int64
	Admitted   atomic.Int64
	Inserted   atomic.Int64
	Updated    atomic.Int64
	Suppressed atomic.Int64
	Flushes    atomic.Int64

	mu      sync.Mutex
	skipped map[SkipReason]int64
	dropped map[string]int64
}

// NewRunStats returns zeroed counters
func NewRunStats() *RunStats {
	return &RunStats{
		skipped: make(map[SkipReason]int64),
		dropped: make(map[string]int64),
	}
}

// Skip counts a rejected bundle
func (s *RunStats) Skip(reason SkipReason) {
	s.mu.Lock()
	s.skipped[reason]++
	s.mu.Unlock()
}

// Skipped returns the count for one reason
func (s *RunStats) Skipped(reason SkipReason) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped[reason]
}

// Drop counts fare entries removed before merge
func (s *RunStats) Drop(reason string, n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.dropped[reason] += int64(n)
	s.mu.Unlock()
}

// Dropped returns the count for one reason
func (s *RunStats) Dropped(reason string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped[reason]
}

// Fields flattens the counters into logger key/value pairs
func (s *RunStats) Fields() []interface{} {
	fields := []interface{}{
		"processed", s.Processed.Load(),
		"admitted", s.Admitted.Load(),
		"inserted", s.Inserted.Load(),
		"updated", s.Updated.Load(),
		"suppressed", s.Suppressed.Load(),
		"flushes", s.Flushes.Load(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reasons := make([]string, 0, len(s.skipped))
	for r := range s.skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fields = append(fields, "skipped_"+r, s.skipped[SkipReason(r)])
	}

	drops := make([]string, 0, len(s.dropped))
	for r := range s.dropped {
		drops = append(drops, r)
	}
	sort.Strings(drops)
	for _, r := range drops {
		fields = append(fields, "dropped_"+r, s.dropped[r])
	}
	return fields
}
