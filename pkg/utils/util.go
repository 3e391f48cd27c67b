package utils

import (
	"fmt"
	"strings"
	"time"
)

// TruncateDay returns midnight UTC of t's calendar day.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from `from` to `to`.
// Negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	return int(TruncateDay(to).Sub(TruncateDay(from)).Hours() / 24)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return TruncateDay(a).Equal(TruncateDay(b))
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DATE_LAYOUT, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// ParseTimestamp accepts either RFC3339 or a bare date.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return ParseDate(value)
}

// WeekdayIndex maps a date to 0 (Monday) ... 6 (Sunday).
func WeekdayIndex(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// RouteKey formats the ORIGIN-DEST key used by rate and currency tables.
func RouteKey(origin, destination string) string {
	return strings.ToUpper(origin) + "-" + strings.ToUpper(destination)
}

// NormalizeCodes upper-cases, trims and drops empty entries.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SplitCodes splits a comma separated list into normalized codes.
func SplitCodes(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return NormalizeCodes(strings.Split(value, ","))
}

// ContainsCode reports whether code is in codes, ignoring case.
func ContainsCode(codes []string, code string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
