package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidTransaction marks a transaction rejected by validation. The
// offending record is skipped; the rest of the stream keeps processing.
var ErrInvalidTransaction = errors.New("invalid transaction")

// TransactionKind distinguishes acquisitions from disposals.
type TransactionKind string

const (
	KindBuy  TransactionKind = "BUY"
	KindSell TransactionKind = "SELL"
)

// ParseTransactionKind normalizes the activity labels accepted on ingestion.
// Broker exports in this system label rows PURCHASED/SOLD; BUY/SELL are
// accepted as synonyms.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "PURCHASED":
		return KindBuy, nil
	case "SELL", "SOLD":
		return KindSell, nil
	default:
		return "", fmt.Errorf("%w: unknown activity %q", ErrInvalidTransaction, s)
	}
}

// Transaction is one canonical buy or sell event, already normalized by the
// upstream statement parser. All monetary fields are in the foreign (trade)
// currency.
type Transaction struct {
	Symbol     string          `json:"symbol"`
	Date       Date            `json:"date"`
	Kind       TransactionKind `json:"kind"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Commission decimal.Decimal `json:"commission"`
	Source     string          `json:"source,omitempty"`
	HashID     string          `json:"-"`
}

// Validate checks the invariants the engine assumes of its input. A failure
// wraps ErrInvalidTransaction with the reason.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date for %s", ErrInvalidTransaction, t.Symbol)
	}
	if t.Kind != KindBuy && t.Kind != KindSell {
		return fmt.Errorf("%w: unknown kind %q for %s", ErrInvalidTransaction, t.Kind, t.Symbol)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("%w: non-positive quantity %s for %s on %s", ErrInvalidTransaction, t.Quantity, t.Symbol, t.Date)
	}
	if !t.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: non-positive unit price %s for %s on %s", ErrInvalidTransaction, t.UnitPrice, t.Symbol, t.Date)
	}
	if t.Commission.IsNegative() {
		return fmt.Errorf("%w: negative commission %s for %s on %s", ErrInvalidTransaction, t.Commission, t.Symbol, t.Date)
	}
	return nil
}

// ComputeHashID derives the content hash used for ingestion dedup.
// Source is deliberately excluded: the same trade reported by two files is
// still the same trade.
func (t *Transaction) ComputeHashID() string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		t.Date, t.Symbol, t.Kind, t.Quantity, t.UnitPrice, t.Commission)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// PurchaseLot is one still-open acquisition, owned by a single symbol's
// inventory. Home-currency figures are fixed once at creation by converting
// at the purchase date; they are never re-converted. CommissionForeign and
// CommissionHome hold the lot's current remaining commission and shrink
// proportionally as units are consumed.
type PurchaseLot struct {
	ID                uuid.UUID       `json:"id"`
	Symbol            string          `json:"symbol"`
	PurchaseDate      Date            `json:"purchaseDate"`
	UnitsRemaining    decimal.Decimal `json:"unitsRemaining"`
	UnitPriceForeign  decimal.Decimal `json:"unitPriceForeign"`
	CommissionForeign decimal.Decimal `json:"commissionForeign"`
	UnitPriceHome     decimal.Decimal `json:"unitPriceHome"`
	CommissionHome    decimal.Decimal `json:"commissionHome"`
	ExchangeRate      decimal.Decimal `json:"exchangeRate"`
	RateMissing       bool            `json:"rateMissing,omitempty"`
	Source            string          `json:"source,omitempty"`
}

// Clone returns an independent copy. Selection strategies work on clones so
// callers' inputs are never mutated.
func (l PurchaseLot) Clone() PurchaseLot {
	return l
}

// CostPerUnitForeign is the foreign-currency acquisition cost of one unit
// including the unit's commission share; the tax-optimal ordering key.
func (l PurchaseLot) CostPerUnitForeign() decimal.Decimal {
	if l.UnitsRemaining.IsZero() {
		return l.UnitPriceForeign
	}
	return l.UnitPriceForeign.Add(l.CommissionForeign.Div(l.UnitsRemaining))
}

// MatchedSaleLine pairs one sale with one consumed lot fragment. Monetary
// fields are home currency for exactly UnitsMatched units; proceeds are net
// of the fragment's share of the sale commission.
type MatchedSaleLine struct {
	SaleDate         Date            `json:"saleDate"`
	Symbol           string          `json:"symbol"`
	LotID            uuid.UUID       `json:"lotId"`
	LotPurchaseDate  Date            `json:"lotPurchaseDate"`
	UnitsMatched     decimal.Decimal `json:"unitsMatched"`
	ProceedsHome     decimal.Decimal `json:"proceedsHome"`
	CostBasisHome    decimal.Decimal `json:"costBasisHome"`
	DaysHeld         int             `json:"daysHeld"`
	LongTermEligible bool            `json:"longTermEligible"`
	CapitalGainHome  decimal.Decimal `json:"capitalGainHome"`
	DiscountApplied  bool            `json:"discountApplied"`
	TaxableGainHome  decimal.Decimal `json:"taxableGainHome"`
	Warning          string          `json:"warning,omitempty"`
}

// ReportSummary aggregates a report's matched lines in home currency.
type ReportSummary struct {
	TotalProceeds    decimal.Decimal `json:"totalProceeds"`
	TotalCostBasis   decimal.Decimal `json:"totalCostBasis"`
	TotalCapitalGain decimal.Decimal `json:"totalCapitalGain"`
	TotalTaxableGain decimal.Decimal `json:"totalTaxableGain"`
	LongTermLines    int             `json:"longTermLines"`
	ShortTermLines   int             `json:"shortTermLines"`
	DiscountLines    int             `json:"discountLines"`
	WarningLines     int             `json:"warningLines"`
}

// CGTReport is the engine's primary output: matched sale lines ordered by
// symbol then sale date, their summary, and the diagnostics collected along
// the way. Errors hold rejected-transaction messages; Warnings hold
// non-fatal conditions such as missing rates and inventory shortfalls.
type CGTReport struct {
	Strategy      string            `json:"strategy"`
	FinancialYear string            `json:"financialYear,omitempty"`
	Lines         []MatchedSaleLine `json:"lines"`
	Summary       ReportSummary     `json:"summary"`
	Warnings      []string          `json:"warnings,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
}

// CostBasisSnapshot is the terminal open-lot state per symbol: the input to
// the next processing period. Lots are ordered by purchase date and carry
// only positive remaining units.
type CostBasisSnapshot struct {
	AsOf     Date                     `json:"asOf"`
	Strategy string                   `json:"strategy"`
	Symbols  map[string][]PurchaseLot `json:"symbols"`
	Warnings []string                 `json:"warnings,omitempty"`
	Errors   []string                 `json:"errors,omitempty"`
}

// SymbolList returns the snapshot's symbols in lexical order, for
// deterministic iteration.
func (s *CostBasisSnapshot) SymbolList() []string {
	symbols := make([]string, 0, len(s.Symbols))
	for symbol := range s.Symbols {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// TotalUnits sums remaining units across every symbol.
func (s *CostBasisSnapshot) TotalUnits() decimal.Decimal {
	total := decimal.Zero
	for _, lots := range s.Symbols {
		for _, lot := range lots {
			total = total.Add(lot.UnitsRemaining)
		}
	}
	return total
}

// RowError reports one rejected row from an ingested file.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// UploadResult summarizes one canonical CSV ingestion.
type UploadResult struct {
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Rejected   []RowError `json:"rejected,omitempty"`
}
