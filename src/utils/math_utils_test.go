package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProportion(t *testing.T) {
	rq := require.New(t)

	dec := func(s string) decimal.Decimal {
		d, err := decimal.NewFromString(s)
		rq.NoError(err)
		return d
	}

	// 20 commission prorated for 40 of 100 units.
	rq.True(Proportion(dec("20"), dec("40"), dec("100")).Equal(dec("8")))

	// Full consumption takes the whole value.
	rq.True(Proportion(dec("9.95"), dec("100"), dec("100")).Equal(dec("9.95")))

	rq.True(Proportion(dec("10"), decimal.Zero, dec("3")).IsZero())

	// Non-terminating ratios keep enough precision for currency work.
	third := Proportion(dec("1"), dec("1"), dec("3"))
	rq.Equal("0.33", third.Round(2).String())
}
