package processors

import (
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsumedFragment records the units one sale took from one purchase lot,
// together with the lot-side figures needed for cost basis. The commission
// shares are scaled off whatever commission the lot still carried when the
// fragment was cut, so the per-unit share drifts upward as a lot is consumed
// across several sales.
type ConsumedFragment struct {
	LotID                  uuid.UUID
	PurchaseDate           models.Date
	UnitsUsed              decimal.Decimal
	UnitPriceForeign       decimal.Decimal
	UnitPriceHome          decimal.Decimal
	CommissionForeignShare decimal.Decimal
	CommissionHomeShare    decimal.Decimal
	ExchangeRate           decimal.Decimal
	RateMissing            bool
}

// SelectionResult is what a strategy hands back for one sale: the fragments
// it consumed, any units it could not satisfy, and the surviving open lots.
type SelectionResult struct {
	Consumed    []ConsumedFragment
	Unsatisfied decimal.Decimal
	UpdatedLots []models.PurchaseLot
}

// LotSelectionStrategy decides which open lots a sale consumes and in what
// order. Select must not mutate its inputs; implementations work on clones
// and return the updated inventory in UpdatedLots.
type LotSelectionStrategy interface {
	Name() string
	Select(openLots []models.PurchaseLot, unitsNeeded decimal.Decimal, saleDate models.Date) SelectionResult
}

// CGTEngine turns a canonical transaction stream into matched sale lines and
// the terminal open-lot snapshot.
type CGTEngine interface {
	Process(transactions []models.Transaction, year *models.FinancialYear) (*models.CGTReport, *models.CostBasisSnapshot)
}
