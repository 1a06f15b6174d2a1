package utils

import "github.com/shopspring/decimal"

// Proportion returns value scaled by part/whole. Whole must be non-zero;
// callers guard against empty sales before prorating.
func Proportion(value, part, whole decimal.Decimal) decimal.Decimal {
	return value.Mul(part).Div(whole)
}
