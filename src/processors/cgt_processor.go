package processors

import (
	"fmt"

	"github.com/Roifine/us-stocks-cgt-helper/src/fx"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/Roifine/us-stocks-cgt-helper/src/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// longTermDiscount is the CGT discount applied to gains on lots held for at
// least LongTermHoldingDays.
var longTermDiscount = decimal.NewFromFloat(0.5)

// CGTProcessor runs the canonical transaction stream forward through one lot
// inventory per symbol. Buys open lots with their home-currency cost frozen
// at the purchase-date rate; sells hand the inventory to the strategy and
// turn the consumed fragments into capital gains lines at the sale-date
// rate. Missing rates and inventory shortfalls become warnings, never
// failures.
type CGTProcessor struct {
	converter   *fx.Converter
	strategy    LotSelectionStrategy
	txProcessor *TransactionProcessor
}

func NewCGTProcessor(converter *fx.Converter, strategy LotSelectionStrategy) *CGTProcessor {
	return &CGTProcessor{
		converter:   converter,
		strategy:    strategy,
		txProcessor: NewTransactionProcessor(),
	}
}

// Process consumes the whole stream in chronological order per symbol and
// returns the capital gains report alongside the terminal open-lot snapshot.
// When year is set the report lines and summary are narrowed to sales inside
// that financial year; the snapshot always reflects the full stream.
func (p *CGTProcessor) Process(transactions []models.Transaction, year *models.FinancialYear) (*models.CGTReport, *models.CostBasisSnapshot) {
	bySymbol, rejected := p.txProcessor.Prepare(transactions)

	var (
		lines    []models.MatchedSaleLine
		warnings []string
		errs     []string
		lastDate models.Date
	)
	for _, err := range rejected {
		errs = append(errs, err.Error())
	}

	inventories := make(map[string]*LotInventory)
	for _, symbol := range sortedSymbols(bySymbol) {
		inv := NewLotInventory(symbol)
		inventories[symbol] = inv

		for _, tx := range bySymbol[symbol] {
			if tx.Date.After(lastDate.Time) {
				lastDate = tx.Date
			}
			switch tx.Kind {
			case models.KindBuy:
				lot, warning := p.openLot(tx)
				if warning != "" {
					warnings = append(warnings, warning)
				}
				inv.Add(lot)
			case models.KindSell:
				saleLines, saleWarnings := p.matchSale(inv, tx)
				lines = append(lines, saleLines...)
				warnings = append(warnings, saleWarnings...)
			}
		}
	}

	reportLines := lines
	if year != nil {
		reportLines = filterLinesByYear(lines, *year)
	}

	report := &models.CGTReport{
		Strategy: p.strategy.Name(),
		Lines:    reportLines,
		Summary:  summarize(reportLines),
		Warnings: warnings,
		Errors:   errs,
	}
	if year != nil {
		report.FinancialYear = year.String()
	}

	snapshot := &models.CostBasisSnapshot{
		AsOf:     lastDate,
		Strategy: p.strategy.Name(),
		Symbols:  make(map[string][]models.PurchaseLot),
		Warnings: warnings,
		Errors:   errs,
	}
	for symbol, inv := range inventories {
		if inv.Empty() {
			continue
		}
		snapshot.Symbols[symbol] = inv.OpenLots()
	}

	return report, snapshot
}

// openLot converts the purchase to home currency and freezes the result on a
// new lot. Without a rate inside the fallback window the foreign amounts are
// carried as home values and the lot is flagged.
func (p *CGTProcessor) openLot(tx models.Transaction) (models.PurchaseLot, string) {
	lot := models.PurchaseLot{
		ID:                uuid.New(),
		Symbol:            tx.Symbol,
		PurchaseDate:      tx.Date,
		UnitsRemaining:    tx.Quantity,
		UnitPriceForeign:  tx.UnitPrice,
		CommissionForeign: tx.Commission,
		Source:            tx.Source,
	}

	price, perr := p.converter.Convert(tx.UnitPrice, tx.Date)
	commission, cerr := p.converter.Convert(tx.Commission, tx.Date)
	if perr != nil || cerr != nil {
		lot.UnitPriceHome = tx.UnitPrice
		lot.CommissionHome = tx.Commission
		lot.RateMissing = true
		return lot, fmt.Sprintf("%s purchase on %s: no exchange rate within %d days, carrying foreign amounts as home currency", tx.Symbol, tx.Date, fx.FallbackWindowDays)
	}

	lot.UnitPriceHome = price.AmountHome
	lot.CommissionHome = commission.AmountHome
	lot.ExchangeRate = price.Rate
	return lot, ""
}

// matchSale settles one sale against the symbol's inventory and returns a
// line per consumed fragment. Proceeds and the sale commission are prorated
// by units and converted at the sale-date rate.
func (p *CGTProcessor) matchSale(inv *LotInventory, sale models.Transaction) ([]models.MatchedSaleLine, []string) {
	var warnings []string

	saleRate, found := p.converter.RateOnOrBefore(sale.Date)
	if !found {
		saleRate = decimal.NewFromInt(1)
		warnings = append(warnings, fmt.Sprintf("%s sale on %s: no exchange rate within %d days, treating foreign proceeds as home currency", sale.Symbol, sale.Date, fx.FallbackWindowDays))
	}

	grossForeign := sale.Quantity.Mul(sale.UnitPrice)

	if inv.Empty() {
		proceedsHome := grossForeign.Sub(sale.Commission).Div(saleRate)
		warnings = append(warnings, fmt.Sprintf("%s sale on %s: no cost basis data, full net proceeds treated as gain", sale.Symbol, sale.Date))
		return []models.MatchedSaleLine{{
			SaleDate:        sale.Date,
			Symbol:          sale.Symbol,
			UnitsMatched:    decimal.Zero,
			ProceedsHome:    proceedsHome,
			CostBasisHome:   decimal.Zero,
			CapitalGainHome: proceedsHome,
			TaxableGainHome: proceedsHome,
			Warning:         "no cost basis data",
		}}, warnings
	}

	selection := p.strategy.Select(inv.OpenLots(), sale.Quantity, sale.Date)
	inv.Apply(selection.UpdatedLots)

	lines := make([]models.MatchedSaleLine, 0, len(selection.Consumed))
	for _, frag := range selection.Consumed {
		proceedsForeign := utils.Proportion(grossForeign, frag.UnitsUsed, sale.Quantity)
		commissionForeign := utils.Proportion(sale.Commission, frag.UnitsUsed, sale.Quantity)
		proceedsHome := proceedsForeign.Sub(commissionForeign).Div(saleRate)

		costBasisHome := frag.UnitsUsed.Mul(frag.UnitPriceHome).Add(frag.CommissionHomeShare)
		gain := proceedsHome.Sub(costBasisHome)
		daysHeld := sale.Date.DaysSince(frag.PurchaseDate)
		longTerm := daysHeld >= LongTermHoldingDays
		discount := longTerm && gain.IsPositive()
		taxable := gain
		if discount {
			taxable = gain.Mul(longTermDiscount)
		}

		line := models.MatchedSaleLine{
			SaleDate:         sale.Date,
			Symbol:           sale.Symbol,
			LotID:            frag.LotID,
			LotPurchaseDate:  frag.PurchaseDate,
			UnitsMatched:     frag.UnitsUsed,
			ProceedsHome:     proceedsHome,
			CostBasisHome:    costBasisHome,
			DaysHeld:         daysHeld,
			LongTermEligible: longTerm,
			CapitalGainHome:  gain,
			DiscountApplied:  discount,
			TaxableGainHome:  taxable,
		}
		if frag.RateMissing {
			line.Warning = "cost basis carried in foreign currency"
		}
		lines = append(lines, line)
	}

	if selection.Unsatisfied.IsPositive() {
		shortfall := fmt.Sprintf("missing %s units", selection.Unsatisfied)
		warnings = append(warnings, fmt.Sprintf("%s sale on %s: %s of inventory, matched what was available", sale.Symbol, sale.Date, shortfall))
		if len(lines) > 0 {
			last := &lines[len(lines)-1]
			if last.Warning != "" {
				last.Warning += "; "
			}
			last.Warning += shortfall
		}
	}

	return lines, warnings
}

func filterLinesByYear(lines []models.MatchedSaleLine, year models.FinancialYear) []models.MatchedSaleLine {
	filtered := make([]models.MatchedSaleLine, 0, len(lines))
	for _, line := range lines {
		if year.Contains(line.SaleDate) {
			filtered = append(filtered, line)
		}
	}
	return filtered
}

func summarize(lines []models.MatchedSaleLine) models.ReportSummary {
	var s models.ReportSummary
	for _, line := range lines {
		s.TotalProceeds = s.TotalProceeds.Add(line.ProceedsHome)
		s.TotalCostBasis = s.TotalCostBasis.Add(line.CostBasisHome)
		s.TotalCapitalGain = s.TotalCapitalGain.Add(line.CapitalGainHome)
		s.TotalTaxableGain = s.TotalTaxableGain.Add(line.TaxableGainHome)
		if line.LongTermEligible {
			s.LongTermLines++
		} else {
			s.ShortTermLines++
		}
		if line.DiscountApplied {
			s.DiscountLines++
		}
		if line.Warning != "" {
			s.WarningLines++
		}
	}
	return s
}
