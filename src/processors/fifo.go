package processors

import (
	"sort"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/shopspring/decimal"
)

// FIFOStrategy consumes lots strictly oldest purchase first. Lots bought on
// the same day keep their original insertion order.
type FIFOStrategy struct{}

func NewFIFOStrategy() *FIFOStrategy {
	return &FIFOStrategy{}
}

func (s *FIFOStrategy) Name() string {
	return StrategyFIFO
}

func (s *FIFOStrategy) Select(openLots []models.PurchaseLot, unitsNeeded decimal.Decimal, saleDate models.Date) SelectionResult {
	lots := cloneLots(openLots)

	order := make([]int, len(lots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lots[order[a]].PurchaseDate.Before(lots[order[b]].PurchaseDate.Time)
	})

	consumed, unsatisfied := consumeLots(lots, order, unitsNeeded)

	return SelectionResult{
		Consumed:    consumed,
		Unsatisfied: unsatisfied,
		UpdatedLots: compactLots(lots),
	}
}
