package utils_test

import (
	"testing"
	"time"

	"fare-pipeline/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2026, 10, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2026, 10, 4, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 3, utils.DaysBetween(from, to))
	assert.Equal(t, -3, utils.DaysBetween(to, from))
}

func TestWeekdayIndex_MondayIsZero(t *testing.T) {
	monday := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, utils.WeekdayIndex(monday))
	assert.Equal(t, 6, utils.WeekdayIndex(sunday))
}

func TestParseTimestamp_AcceptsDateAndRFC3339(t *testing.T) {
	d, err := utils.ParseTimestamp("2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), d)

	ts, err := utils.ParseTimestamp("2026-10-16T08:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 6, 30, 0, 0, time.UTC), ts)

	_, err = utils.ParseTimestamp("16/10/2026")
	assert.Error(t, err)
}

func TestSplitCodes(t *testing.T) {
	assert.Equal(t, []string{"AA", "BA"}, utils.SplitCodes(" aa, ,ba"))
	assert.Nil(t, utils.SplitCodes(""))
	assert.True(t, utils.ContainsCode([]string{"AA"}, "aa"))
}
