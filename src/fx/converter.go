package fx

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
)

// Conversion is the result of converting one foreign amount: the home
// amount and the rate that produced it.
type Conversion struct {
	AmountHome decimal.Decimal
	Rate       decimal.Decimal
}

// Converter turns foreign-currency amounts into home currency using the
// historical rate on (or shortly before) a given date. It is a pure
// wrapper over an immutable RateTable.
//
// Rate convention: one home unit equals Rate foreign units, so
// amountHome = amountForeign / rate. With AUD home and USD foreign this is
// the usual AUD/USD quote.
type Converter struct {
	table *RateTable
}

// NewConverter wraps a rate table. A nil or empty table is refused up
// front; a converter that could never find a rate must not exist.
func NewConverter(table *RateTable) (*Converter, error) {
	if table == nil || table.Len() == 0 {
		return nil, ErrEmptyTable
	}
	return &Converter{table: table}, nil
}

// Convert converts a foreign amount at a date. Zero amounts convert to
// zero without a rate lookup. A date with no rate inside the fallback
// window returns ErrRateNotFound; the caller decides the fallback policy.
func (c *Converter) Convert(amountForeign decimal.Decimal, date models.Date) (Conversion, error) {
	if amountForeign.IsZero() {
		return Conversion{AmountHome: decimal.Zero, Rate: decimal.Zero}, nil
	}
	rate, ok := c.table.RateOnOrBefore(date)
	if !ok {
		return Conversion{}, fmt.Errorf("%w: no rate on or within %d days before %s",
			ErrRateNotFound, FallbackWindowDays, date)
	}
	return Conversion{AmountHome: amountForeign.Div(rate), Rate: rate}, nil
}

// RateOnOrBefore exposes the table lookup for callers that only need the
// rate itself.
func (c *Converter) RateOnOrBefore(date models.Date) (decimal.Decimal, bool) {
	return c.table.RateOnOrBefore(date)
}
