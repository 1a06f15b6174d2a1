// Package fx holds the exchange-rate table and currency converter. Both are
// plain values constructed once at startup and injected into whatever needs
// them; nothing in this package keeps process-wide state.
package fx

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
)

var (
	// ErrEmptyTable means no usable rate survived construction.
	ErrEmptyTable = errors.New("exchange rate table is empty")
	// ErrRateNotFound means no rate exists on or within the fallback
	// window before a requested date.
	ErrRateNotFound = errors.New("exchange rate not found")
)

// FallbackWindowDays is how many calendar days RateOnOrBefore walks
// backward from a missed date before giving up.
const FallbackWindowDays = 7

// Rate is one observed exchange rate: home-per-foreign on a calendar date
// (AUD/USD: one AUD buys Value USD).
type Rate struct {
	Date  models.Date
	Value decimal.Decimal
}

// Band is the sane range a rate must fall inside to be trusted. Rows
// outside the band are data glitches and are dropped at construction.
type Band struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// NewBand builds a band from config floats.
func NewBand(min, max float64) Band {
	return Band{Min: decimal.NewFromFloat(min), Max: decimal.NewFromFloat(max)}
}

// DefaultBand covers the historical AUD/USD range with margin.
func DefaultBand() Band {
	return NewBand(0.4, 1.2)
}

func (b Band) valid() bool {
	return b.Min.IsPositive() && b.Max.GreaterThan(b.Min)
}

func (b Band) contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(b.Min) && v.LessThanOrEqual(b.Max)
}

// RateTable is an immutable date-indexed rate lookup. Construct it once
// from loaded rate rows; it is read-only afterwards and safe for
// concurrent readers.
type RateTable struct {
	rates   map[string]decimal.Decimal
	first   models.Date
	last    models.Date
	skipped int
}

// NewRateTable validates and indexes rate rows. Rows outside the band are
// skipped (counted, logged); duplicate dates keep the first occurrence.
// A table with no usable rows is an error: a converter built on nothing
// would silently fall back on every conversion.
func NewRateTable(rates []Rate, band Band) (*RateTable, error) {
	if !band.valid() {
		return nil, fmt.Errorf("invalid rate band [%s, %s]", band.Min, band.Max)
	}

	t := &RateTable{rates: make(map[string]decimal.Decimal, len(rates))}
	for _, r := range rates {
		if r.Date.IsZero() {
			t.skipped++
			continue
		}
		if !r.Value.IsPositive() || !band.contains(r.Value) {
			t.skipped++
			logger.L.Warn("Skipping out-of-band exchange rate", "date", r.Date.String(), "rate", r.Value)
			continue
		}
		key := r.Date.String()
		if _, exists := t.rates[key]; exists {
			continue
		}
		t.rates[key] = r.Value
		if t.first.IsZero() || r.Date.Before(t.first.Time) {
			t.first = r.Date
		}
		if t.last.IsZero() || r.Date.After(t.last.Time) {
			t.last = r.Date
		}
	}

	if len(t.rates) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// RateOnOrBefore returns the rate for the date, or the nearest earlier rate
// within the fallback window. Exact date first, then one day back at a
// time; beyond the window the lookup reports not found.
func (t *RateTable) RateOnOrBefore(date models.Date) (decimal.Decimal, bool) {
	for back := 0; back <= FallbackWindowDays; back++ {
		if rate, ok := t.rates[date.AddDays(-back).String()]; ok {
			return rate, true
		}
	}
	return decimal.Decimal{}, false
}

// Len is the number of distinct rate dates.
func (t *RateTable) Len() int {
	return len(t.rates)
}

// Skipped is how many input rows construction dropped.
func (t *RateTable) Skipped() int {
	return t.skipped
}

// First is the earliest rate date in the table.
func (t *RateTable) First() models.Date {
	return t.first
}

// Last is the latest rate date in the table.
func (t *RateTable) Last() models.Date {
	return t.last
}
