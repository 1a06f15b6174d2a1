package models

import (
	"fmt"
	"time"

	"github.com/Roifine/us-stocks-cgt-helper/src/utils"
)

// Date is a calendar date with day precision. Time-of-day never survives
// into a Date: every constructor truncates to midnight UTC. JSON form is
// the canonical "2006-01-02" string.
type Date struct {
	time.Time
}

// NewDate builds a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{utils.DateOnly(t)}
}

// ParseDate strictly parses a canonical date string.
func ParseDate(s string) (Date, error) {
	t, err := utils.ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// AddDays returns the date n calendar days later (earlier when negative).
func (d Date) AddDays(n int) Date {
	return Date{utils.DateOnly(d.Time.AddDate(0, 0, n))}
}

// DaysSince returns the whole days elapsed since other.
func (d Date) DaysSince(other Date) int {
	return utils.DaysBetween(other.Time, d.Time)
}

func (d Date) String() string {
	return utils.FormatDate(d.Time)
}

// MarshalJSON renders the canonical string, or null for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", utils.ErrInvalidDate, string(data))
	}
	parsed, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
