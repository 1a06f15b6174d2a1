package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical calendar-date layout used across the system.
const DateFormat = "2006-01-02"

// ErrInvalidDate marks a date string that could not be parsed strictly.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses a calendar date in the canonical format. Time-of-day is
// discarded: the result is midnight UTC. Unparseable input returns a typed
// error; there is no sentinel fallback.
func ParseDate(dateStr string) (time.Time, error) {
	trimmed := strings.TrimSpace(dateStr)
	t, err := time.Parse(DateFormat, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected %s)", ErrInvalidDate, dateStr, DateFormat)
	}
	return DateOnly(t), nil
}

// DateOnly truncates a time to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a time as a canonical calendar date string.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// DaysBetween returns the whole calendar days from 'from' to 'to'.
// Negative when 'to' precedes 'from'.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}
