package processors

import (
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/shopspring/decimal"
)

// LotInventory holds one symbol's open purchase lots in the order they were
// bought. The engine owns one inventory per symbol for the life of a run.
type LotInventory struct {
	symbol string
	lots   []models.PurchaseLot
}

func NewLotInventory(symbol string) *LotInventory {
	return &LotInventory{symbol: symbol}
}

func (inv *LotInventory) Symbol() string {
	return inv.symbol
}

// Add appends a freshly created lot. Buys arrive chronologically, so the
// slice stays sorted by purchase date without re-sorting.
func (inv *LotInventory) Add(lot models.PurchaseLot) {
	inv.lots = append(inv.lots, lot)
}

// OpenLots returns a copy of the open lots for a strategy to work on.
func (inv *LotInventory) OpenLots() []models.PurchaseLot {
	return cloneLots(inv.lots)
}

// Apply replaces the open lots with the survivors of a sale.
func (inv *LotInventory) Apply(updated []models.PurchaseLot) {
	inv.lots = updated
}

func (inv *LotInventory) Empty() bool {
	return len(inv.lots) == 0
}

func (inv *LotInventory) TotalUnits() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range inv.lots {
		total = total.Add(lot.UnitsRemaining)
	}
	return total
}
