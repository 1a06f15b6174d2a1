package processors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/shopspring/decimal"
)

// ErrUnknownStrategy is returned when a strategy name is not registered.
var ErrUnknownStrategy = errors.New("unknown lot selection strategy")

const (
	// StrategyFIFO consumes the oldest lots first.
	StrategyFIFO = "fifo"
	// StrategyTaxOptimal prefers discount-eligible lots, most expensive first.
	StrategyTaxOptimal = "tax-optimal"
)

// LongTermHoldingDays is the minimum holding period for the CGT discount.
const LongTermHoldingDays = 365

// NewStrategy returns the lot selection strategy registered under name.
func NewStrategy(name string) (LotSelectionStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyFIFO:
		return NewFIFOStrategy(), nil
	case StrategyTaxOptimal, "tax_optimal", "taxoptimal":
		return NewTaxOptimalStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// cloneLots deep-copies the open lots so strategies never touch caller state.
func cloneLots(lots []models.PurchaseLot) []models.PurchaseLot {
	clones := make([]models.PurchaseLot, 0, len(lots))
	for _, lot := range lots {
		clones = append(clones, lot.Clone())
	}
	return clones
}

// consumeLots walks the cloned lots in the given index order, cutting a
// fragment from each until unitsNeeded is satisfied or the lots run out.
// Commission shares are prorated from the lot's current remaining commission,
// and the lots are reduced in place.
func consumeLots(lots []models.PurchaseLot, order []int, unitsNeeded decimal.Decimal) ([]ConsumedFragment, decimal.Decimal) {
	var consumed []ConsumedFragment
	remaining := unitsNeeded

	for _, idx := range order {
		if !remaining.IsPositive() {
			break
		}
		lot := &lots[idx]
		if !lot.UnitsRemaining.IsPositive() {
			continue
		}

		unitsUsed := decimal.Min(remaining, lot.UnitsRemaining)

		var commissionForeign, commissionHome decimal.Decimal
		if unitsUsed.Equal(lot.UnitsRemaining) {
			commissionForeign = lot.CommissionForeign
			commissionHome = lot.CommissionHome
		} else {
			ratio := unitsUsed.Div(lot.UnitsRemaining)
			commissionForeign = lot.CommissionForeign.Mul(ratio)
			commissionHome = lot.CommissionHome.Mul(ratio)
		}

		consumed = append(consumed, ConsumedFragment{
			LotID:                  lot.ID,
			PurchaseDate:           lot.PurchaseDate,
			UnitsUsed:              unitsUsed,
			UnitPriceForeign:       lot.UnitPriceForeign,
			UnitPriceHome:          lot.UnitPriceHome,
			CommissionForeignShare: commissionForeign,
			CommissionHomeShare:    commissionHome,
			ExchangeRate:           lot.ExchangeRate,
			RateMissing:            lot.RateMissing,
		})

		lot.UnitsRemaining = lot.UnitsRemaining.Sub(unitsUsed)
		lot.CommissionForeign = lot.CommissionForeign.Sub(commissionForeign)
		lot.CommissionHome = lot.CommissionHome.Sub(commissionHome)
		remaining = remaining.Sub(unitsUsed)
	}

	return consumed, remaining
}

// compactLots drops exhausted lots, preserving the original insertion order.
func compactLots(lots []models.PurchaseLot) []models.PurchaseLot {
	open := make([]models.PurchaseLot, 0, len(lots))
	for _, lot := range lots {
		if lot.UnitsRemaining.IsPositive() {
			open = append(open, lot)
		}
	}
	return open
}
