package entity_test

import (
	"testing"
	"time"

	"fare-pipeline/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScrapeFrequency_IsDayOfWeekEnabled(t *testing.T) {
	cases := []string{"0", "135", "0123456", "6", "2244"}
	for _, value := range cases {
		f, err := entity.NewScrapeFrequency(value)
		require.NoError(t, err, value)
		for day := 0; day <= 6; day++ {
			want := false
			for _, r := range value {
				if int(r-'0') == day {
					want = true
				}
			}
			assert.Equal(t, want, f.IsDayOfWeekEnabled(day), "frequency %s day %d", value, day)
		}
		assert.False(t, f.IsDayOfWeekEnabled(7))
	}
}

func TestScrapeFrequency_RejectsInvalid(t *testing.T) {
	for _, value := range []string{"", "7", "01a", "-1", "0 1", "9"} {
		_, err := entity.NewScrapeFrequency(value)
		assert.ErrorIs(t, err, entity.ErrInvalidFrequency, value)
	}
}

func TestScraperMarketSchedule_OpenEndedRange(t *testing.T) {
	s, err := entity.NewScraperMarketSchedule(date(2026, 1, 1), nil, "0123456",
		[]entity.ScraperSettings{{ScraperID: "s1"}})
	require.NoError(t, err)

	assert.False(t, s.IsWithinEffectiveDateRange(date(2025, 12, 31)))
	for _, d := range []time.Time{date(2026, 1, 1), date(2026, 6, 30), date(2099, 12, 31)} {
		assert.True(t, s.IsWithinEffectiveDateRange(d), d)
	}
}

func TestScraperMarketSchedule_ClosedRangeIsInclusive(t *testing.T) {
	to := date(2026, 1, 10)
	s, err := entity.NewScraperMarketSchedule(date(2026, 1, 1), &to, "0",
		[]entity.ScraperSettings{{ScraperID: "s1"}})
	require.NoError(t, err)

	assert.True(t, s.IsWithinEffectiveDateRange(date(2026, 1, 10).Add(15*time.Hour)))
	assert.False(t, s.IsWithinEffectiveDateRange(date(2026, 1, 11)))
}

func TestNewScraperMarketSchedule_Validation(t *testing.T) {
	scrapers := []entity.ScraperSettings{{ScraperID: "s1"}}
	same := date(2026, 1, 1)

	_, err := entity.NewScraperMarketSchedule(date(2026, 1, 1), &same, "0", scrapers)
	assert.ErrorIs(t, err, entity.ErrInvalidEffectiveRange)

	_, err = entity.NewScraperMarketSchedule(date(2026, 1, 1), nil, "0", nil)
	assert.ErrorIs(t, err, entity.ErrNoScrapers)

	_, err = entity.NewScraperMarketSchedule(date(2026, 1, 1), nil, "", scrapers)
	assert.ErrorIs(t, err, entity.ErrInvalidFrequency)
}

func TestScraperMarket_IsDateOperational(t *testing.T) {
	t.Run("no schedules means every day", func(t *testing.T) {
		m := entity.ScraperMarket{Origin: "JFK", Destination: "LHR"}
		for i := 0; i < 14; i++ {
			assert.True(t, m.IsDateOperational(date(2026, 10, 1).AddDate(0, 0, i)))
		}
	})

	t.Run("first matching schedule wins", func(t *testing.T) {
		firstEnd := date(2026, 10, 31)
		// Monday only in October, every day afterwards.
		first, err := entity.NewScraperMarketSchedule(date(2026, 10, 1), &firstEnd, "0",
			[]entity.ScraperSettings{{ScraperID: "a"}})
		require.NoError(t, err)
		second, err := entity.NewScraperMarketSchedule(date(2026, 10, 1), nil, "0123456",
			[]entity.ScraperSettings{{ScraperID: "b"}})
		require.NoError(t, err)

		m := entity.ScraperMarket{Schedules: []entity.ScraperMarketSchedule{first, second}}

		assert.True(t, m.IsDateOperational(date(2026, 10, 12)))  // Monday
		assert.False(t, m.IsDateOperational(date(2026, 10, 13))) // Tuesday
		assert.True(t, m.IsDateOperational(date(2026, 11, 3)))
		assert.Equal(t, "b", m.ScrapersForDate(date(2026, 11, 3))[0].ScraperID)
		assert.Nil(t, m.ScrapersForDate(date(2026, 10, 13)))
	})

	t.Run("no schedule covers the date", func(t *testing.T) {
		s, err := entity.NewScraperMarketSchedule(date(2026, 10, 1), nil, "0123456",
			[]entity.ScraperSettings{{ScraperID: "a"}})
		require.NoError(t, err)
		m := entity.ScraperMarket{Schedules: []entity.ScraperMarketSchedule{s}}
		assert.False(t, m.IsDateOperational(date(2026, 9, 30)))
	})
}

func TestScraperMarket_Validate(t *testing.T) {
	m := entity.ScraperMarket{HostCarrier: "XX", Origin: "JFK", Destination: "LHR", NumberOfDays: 3}
	assert.ErrorIs(t, m.Validate(), entity.ErrNoScrapers)

	m.Scrapers = []entity.ScraperSettings{{ScraperID: "s1"}}
	assert.NoError(t, m.Validate())

	m.NumberOfDays = 0
	assert.Error(t, m.Validate())
}
