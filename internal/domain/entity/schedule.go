// internal/domain/entity/schedule.go
package entity

import (
	"errors"
	"fmt"
	"time"

	"fare-pipeline/pkg/utils"
)

var (
	ErrInvalidFrequency      = errors.New("invalid scrape frequency")
	ErrInvalidEffectiveRange = errors.New("effective_from must be before effective_to")
	ErrNoScrapers            = errors.New("schedule has no scrapers")
)

// ScrapeFrequency is the set of operating weekdays, 0 (Monday) through 6 (Sunday).
type ScrapeFrequency struct {
	raw  string
	days [7]bool
}

// NewScrapeFrequency parses a digit string such as "0246".
func NewScrapeFrequency(value string) (ScrapeFrequency, error) {
	if value == "" {
		return ScrapeFrequency{}, fmt.Errorf("%w: empty", ErrInvalidFrequency)
	}
	f := ScrapeFrequency{raw: value}
	for _, r := range value {
		if r < '0' || r > '6' {
			return ScrapeFrequency{}, fmt.Errorf("%w: %q has out of range day %q", ErrInvalidFrequency, value, r)
		}
		f.days[r-'0'] = true
	}
	return f, nil
}

// EveryDay returns a frequency enabling all seven weekdays.
func EveryDay() ScrapeFrequency {
	f, _ := NewScrapeFrequency("0123456")
	return f
}

// IsDayOfWeekEnabled reports whether weekday (0=Monday) is an operating day.
func (f ScrapeFrequency) IsDayOfWeekEnabled(weekday int) bool {
	if weekday < 0 || weekday > 6 {
		return false
	}
	return f.days[weekday]
}

// IsDateEnabled applies IsDayOfWeekEnabled to the weekday of d.
func (f ScrapeFrequency) IsDateEnabled(d time.Time) bool {
	return f.IsDayOfWeekEnabled(utils.WeekdayIndex(d))
}

func (f ScrapeFrequency) String() string {
	return f.raw
}

// ScraperSettings are the per-scraper constraints carried into every task.
type ScraperSettings struct {
	ScraperID        string   `json:"scraperId"`
	IncludedCarriers []string `json:"includedCarriers,omitempty"`
	MaxStops         int      `json:"maxStops"`
	MaxResults       int      `json:"maxResults"`
	Currency         string   `json:"currency,omitempty"`
}

// ScraperMarketSchedule is one effective-dated cadence of a market.
type ScraperMarketSchedule struct {
	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil means open-ended
	Frequency     ScrapeFrequency
	Scrapers      []ScraperSettings
}

// NewScraperMarketSchedule validates and builds a schedule.
func NewScraperMarketSchedule(from time.Time, to *time.Time, frequency string, scrapers []ScraperSettings) (ScraperMarketSchedule, error) {
	freq, err := NewScrapeFrequency(frequency)
	if err != nil {
		return ScraperMarketSchedule{}, err
	}
	from = utils.TruncateDay(from)
	if to != nil {
		end := utils.TruncateDay(*to)
		if !from.Before(end) {
			return ScraperMarketSchedule{}, fmt.Errorf("%w: %s >= %s", ErrInvalidEffectiveRange,
				from.Format(utils.DATE_LAYOUT), end.Format(utils.DATE_LAYOUT))
		}
		to = &end
	}
	if len(scrapers) == 0 {
		return ScraperMarketSchedule{}, ErrNoScrapers
	}
	return ScraperMarketSchedule{
		EffectiveFrom: from,
		EffectiveTo:   to,
		Frequency:     freq,
		Scrapers:      scrapers,
	}, nil
}

// IsWithinEffectiveDateRange is true when EffectiveFrom <= d and (no end or d <= EffectiveTo).
func (s ScraperMarketSchedule) IsWithinEffectiveDateRange(d time.Time) bool {
	day := utils.TruncateDay(d)
	if day.Before(s.EffectiveFrom) {
		return false
	}
	return s.EffectiveTo == nil || !day.After(*s.EffectiveTo)
}

// ScraperMarket is a transient planning structure built from configuration on each run.
type ScraperMarket struct {
	ID           uint // configuration row, 0 when not loaded from the store
	HostCarrier  string
	Origin       string
	Destination  string
	StartOffset  int
	NumberOfDays int
	Direction    string
	StayDuration int
	Schedules    []ScraperMarketSchedule
	// Scrapers apply to every day when no schedule is configured.
	Scrapers []ScraperSettings
}

// Market returns ORIGIN-DEST.
func (m ScraperMarket) Market() string {
	return utils.RouteKey(m.Origin, m.Destination)
}

// IsDateOperational returns the frequency test of the first schedule whose effective
// range contains d. With no schedules at all, every date is operational.
func (m ScraperMarket) IsDateOperational(d time.Time) bool {
	if len(m.Schedules) == 0 {
		return true
	}
	if s, ok := m.scheduleFor(d); ok {
		return s.Frequency.IsDateEnabled(d)
	}
	return false
}

// ScrapersForDate returns the scrapers assigned on d, or nil when d is not operational.
func (m ScraperMarket) ScrapersForDate(d time.Time) []ScraperSettings {
	if len(m.Schedules) == 0 {
		return m.Scrapers
	}
	s, ok := m.scheduleFor(d)
	if !ok || !s.Frequency.IsDateEnabled(d) {
		return nil
	}
	return s.Scrapers
}

func (m ScraperMarket) scheduleFor(d time.Time) (ScraperMarketSchedule, bool) {
	for _, s := range m.Schedules {
		if s.IsWithinEffectiveDateRange(d) {
			return s, true
		}
	}
	return ScraperMarketSchedule{}, false
}

// Validate checks the market-level invariants that schedules do not cover.
func (m ScraperMarket) Validate() error {
	if m.Origin == "" || m.Destination == "" {
		return fmt.Errorf("market %s/%s: origin and destination are required", m.HostCarrier, m.Market())
	}
	if m.StartOffset < 0 || m.NumberOfDays <= 0 {
		return fmt.Errorf("market %s/%s: invalid scrape window offset=%d days=%d",
			m.HostCarrier, m.Market(), m.StartOffset, m.NumberOfDays)
	}
	if len(m.Schedules) == 0 && len(m.Scrapers) == 0 {
		return fmt.Errorf("market %s/%s: %w", m.HostCarrier, m.Market(), ErrNoScrapers)
	}
	return nil
}
