package processors

import (
	"sort"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/shopspring/decimal"
)

// TaxOptimalStrategy consumes lots already eligible for the long-term
// discount before short-term ones, and within each tier picks the highest
// cost per unit first so the realised gain is as small as the inventory
// allows.
type TaxOptimalStrategy struct{}

func NewTaxOptimalStrategy() *TaxOptimalStrategy {
	return &TaxOptimalStrategy{}
}

func (s *TaxOptimalStrategy) Name() string {
	return StrategyTaxOptimal
}

func (s *TaxOptimalStrategy) Select(openLots []models.PurchaseLot, unitsNeeded decimal.Decimal, saleDate models.Date) SelectionResult {
	lots := cloneLots(openLots)

	var longTerm, shortTerm []int
	for i, lot := range lots {
		if saleDate.DaysSince(lot.PurchaseDate) >= LongTermHoldingDays {
			longTerm = append(longTerm, i)
		} else {
			shortTerm = append(shortTerm, i)
		}
	}
	sortByCostPerUnitDesc(lots, longTerm)
	sortByCostPerUnitDesc(lots, shortTerm)

	order := append(longTerm, shortTerm...)
	consumed, unsatisfied := consumeLots(lots, order, unitsNeeded)

	return SelectionResult{
		Consumed:    consumed,
		Unsatisfied: unsatisfied,
		UpdatedLots: compactLots(lots),
	}
}

// sortByCostPerUnitDesc orders the index tier by remaining cost per unit,
// most expensive first. Equal costs keep insertion order, which is
// chronological.
func sortByCostPerUnitDesc(lots []models.PurchaseLot, tier []int) {
	sort.SliceStable(tier, func(a, b int) bool {
		return lots[tier[a]].CostPerUnitForeign().GreaterThan(lots[tier[b]].CostPerUnitForeign())
	})
}
