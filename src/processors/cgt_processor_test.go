package processors

import (
	"strings"
	"testing"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/stretchr/testify/require"
)

func TestProcessLongTermGainWithDiscount(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-10": "0.70",
		"2024-06-10": "0.65",
	}), NewFIFOStrategy())

	report, snapshot := engine.Process([]models.Transaction{
		buy("2023-01-10", "AAPL", "100", "10", "0"),
		sell("2024-06-10", "AAPL", "100", "15", "0"),
	}, nil)

	rq.Empty(report.Errors)
	rq.Empty(report.Warnings)
	rq.Len(report.Lines, 1)

	line := report.Lines[0]
	rq.Equal(517, line.DaysHeld)
	rq.True(line.LongTermEligible)
	rq.True(line.DiscountApplied)
	rq.True(line.UnitsMatched.Equal(d("100")))
	rq.True(line.CostBasisHome.Round(2).Equal(d("1428.57")), "cost basis %s", line.CostBasisHome)
	rq.True(line.ProceedsHome.Round(2).Equal(d("2307.69")), "proceeds %s", line.ProceedsHome)
	rq.True(line.CapitalGainHome.Round(2).Equal(d("879.12")), "gain %s", line.CapitalGainHome)
	rq.True(line.TaxableGainHome.Round(2).Equal(d("439.56")), "taxable %s", line.TaxableGainHome)

	rq.Empty(snapshot.Symbols)
}

func TestProcessDiscountBoundary(t *testing.T) {
	tests := []struct {
		name         string
		buyDay       string
		sellDay      string
		wantDays     int
		wantDiscount bool
		wantTaxable  string
	}{
		{"held exactly 365 days", "2023-01-01", "2024-01-01", 365, true, "50"},
		{"one day short", "2023-01-02", "2024-01-01", 364, false, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := require.New(t)
			engine := NewCGTProcessor(testConverter(t, map[string]string{
				tt.buyDay:  "1.0",
				tt.sellDay: "1.0",
			}), NewFIFOStrategy())

			report, _ := engine.Process([]models.Transaction{
				buy(tt.buyDay, "AAPL", "10", "10", "0"),
				sell(tt.sellDay, "AAPL", "10", "20", "0"),
			}, nil)

			rq.Len(report.Lines, 1)
			line := report.Lines[0]
			rq.Equal(tt.wantDays, line.DaysHeld)
			rq.Equal(tt.wantDiscount, line.DiscountApplied)
			rq.True(line.CapitalGainHome.Equal(d("100")), "gain %s", line.CapitalGainHome)
			rq.True(line.TaxableGainHome.Equal(d(tt.wantTaxable)), "taxable %s", line.TaxableGainHome)
		})
	}
}

func TestProcessLongTermLossGetsNoDiscount(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "1.0",
		"2024-02-05": "1.0",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2023-01-01", "AAPL", "10", "20", "0"),
		sell("2024-02-05", "AAPL", "10", "10", "0"),
	}, nil)

	rq.Len(report.Lines, 1)
	line := report.Lines[0]
	rq.Equal(400, line.DaysHeld)
	rq.True(line.LongTermEligible)
	rq.False(line.DiscountApplied)
	rq.True(line.CapitalGainHome.Equal(d("-100")))
	rq.True(line.TaxableGainHome.Equal(d("-100")))
}

func TestProcessOversellMatchesAvailableAndWarns(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "1.0",
		"2023-06-01": "1.0",
	}), NewFIFOStrategy())

	report, snapshot := engine.Process([]models.Transaction{
		buy("2023-01-01", "AAPL", "50", "10", "0"),
		sell("2023-06-01", "AAPL", "80", "12", "0"),
	}, nil)

	rq.Len(report.Lines, 1)
	line := report.Lines[0]
	rq.True(line.UnitsMatched.Equal(d("50")))
	rq.Contains(line.Warning, "missing 30 units")
	rq.Len(report.Warnings, 1)
	rq.Contains(report.Warnings[0], "missing 30 units")
	rq.Equal(1, report.Summary.WarningLines)
	rq.Empty(snapshot.Symbols)
}

func TestProcessSaleWithoutInventory(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-06-01": "1.0",
	}), NewFIFOStrategy())

	report, snapshot := engine.Process([]models.Transaction{
		sell("2023-06-01", "AAPL", "10", "10", "5"),
	}, nil)

	rq.Len(report.Lines, 1)
	line := report.Lines[0]
	rq.True(line.UnitsMatched.IsZero())
	rq.True(line.CostBasisHome.IsZero())
	rq.True(line.ProceedsHome.Equal(d("95")), "proceeds %s", line.ProceedsHome)
	rq.True(line.CapitalGainHome.Equal(d("95")))
	rq.True(line.TaxableGainHome.Equal(d("95")))
	rq.False(line.DiscountApplied)
	rq.Equal("no cost basis data", line.Warning)
	rq.Len(report.Warnings, 1)
	rq.Empty(snapshot.Symbols)
}

func TestProcessMissingPurchaseRateCarriesForeignCost(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2024-06-10": "0.65",
	}), NewFIFOStrategy())

	report, snapshot := engine.Process([]models.Transaction{
		buy("2023-01-10", "AAPL", "100", "10", "0"),
		sell("2024-06-10", "AAPL", "100", "15", "0"),
	}, nil)

	rq.Len(report.Warnings, 1)
	rq.Contains(report.Warnings[0], "no exchange rate")
	rq.Len(report.Lines, 1)
	line := report.Lines[0]
	rq.Equal("cost basis carried in foreign currency", line.Warning)
	rq.True(line.CostBasisHome.Equal(d("1000")), "cost basis %s", line.CostBasisHome)
	rq.True(line.ProceedsHome.Round(2).Equal(d("2307.69")))
	rq.Empty(snapshot.Symbols)
}

func TestProcessMissingSaleRateKeepsForeignProceeds(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-10": "0.70",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2023-01-10", "AAPL", "100", "10", "0"),
		sell("2024-06-10", "AAPL", "100", "15", "0"),
	}, nil)

	rq.Len(report.Warnings, 1)
	rq.Contains(report.Warnings[0], "treating foreign proceeds as home currency")
	rq.Len(report.Lines, 1)
	rq.True(report.Lines[0].ProceedsHome.Equal(d("1500")), "proceeds %s", report.Lines[0].ProceedsHome)
}

func TestProcessSaleRateFallsBackWithinWindow(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "0.8",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2023-01-01", "AAPL", "10", "8", "0"),
		sell("2023-01-05", "AAPL", "10", "8", "0"),
	}, nil)

	rq.Empty(report.Warnings)
	rq.Len(report.Lines, 1)
	rq.True(report.Lines[0].CapitalGainHome.IsZero())
}

func TestProcessCommissionConservedAcrossPartialSales(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "1.0",
		"2023-02-01": "1.0",
		"2023-03-01": "1.0",
		"2023-04-01": "1.0",
	}), NewFIFOStrategy())

	report, snapshot := engine.Process([]models.Transaction{
		buy("2023-01-01", "AAPL", "10", "100", "10"),
		sell("2023-02-01", "AAPL", "4", "120", "0"),
		sell("2023-03-01", "AAPL", "4", "120", "0"),
		sell("2023-04-01", "AAPL", "2", "120", "0"),
	}, nil)

	rq.Len(report.Lines, 3)
	rq.True(report.Lines[0].CostBasisHome.Equal(d("404")), "first %s", report.Lines[0].CostBasisHome)
	rq.True(report.Lines[1].CostBasisHome.Equal(d("404")), "second %s", report.Lines[1].CostBasisHome)
	rq.True(report.Lines[2].CostBasisHome.Equal(d("202")), "third %s", report.Lines[2].CostBasisHome)
	rq.True(report.Summary.TotalCostBasis.Equal(d("1010")))
	rq.Empty(snapshot.Symbols)
}

func TestProcessFinancialYearFilter(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "1.0",
		"2023-06-15": "1.0",
		"2023-07-15": "1.0",
	}), NewFIFOStrategy())
	txs := []models.Transaction{
		buy("2023-01-01", "AAPL", "100", "10", "0"),
		sell("2023-06-15", "AAPL", "30", "20", "0"),
		sell("2023-07-15", "AAPL", "50", "20", "0"),
	}

	year := fy("2023-2024")
	report, snapshot := engine.Process(txs, &year)

	rq.Equal("2023-2024", report.FinancialYear)
	rq.Len(report.Lines, 1)
	rq.Equal("2023-07-15", report.Lines[0].SaleDate.String())
	rq.True(report.Summary.TotalProceeds.Equal(d("1000")))

	rq.Equal("2023-07-15", snapshot.AsOf.String())
	rq.Len(snapshot.Symbols["AAPL"], 1)
	rq.True(snapshot.Symbols["AAPL"][0].UnitsRemaining.Equal(d("20")))

	full, _ := engine.Process(txs, nil)
	rq.Len(full.Lines, 2)
	rq.Empty(full.FinancialYear)
}

func TestProcessSkipsInvalidTransactions(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "1.0",
		"2023-06-01": "1.0",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2023-01-01", "AAPL", "10", "100", "0"),
		buy("2023-01-01", "AAPL", "0", "100", "0"),
		sell("2023-06-01", "AAPL", "10", "120", "0"),
	}, nil)

	rq.Len(report.Errors, 1)
	rq.Contains(report.Errors[0], "skipped")
	rq.Len(report.Lines, 1)
	rq.True(report.Lines[0].UnitsMatched.Equal(d("10")))
}

func TestProcessLinesOrderedBySymbol(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2022-01-01": "1.0",
		"2023-05-01": "1.0",
		"2023-06-01": "1.0",
		"2023-06-02": "1.0",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2022-01-01", "MSFT", "10", "100", "0"),
		buy("2023-05-01", "AAPL", "10", "100", "0"),
		sell("2023-06-01", "MSFT", "10", "200", "0"),
		sell("2023-06-02", "AAPL", "5", "50", "0"),
	}, nil)

	rq.Len(report.Lines, 2)
	rq.Equal("AAPL", report.Lines[0].Symbol)
	rq.Equal("MSFT", report.Lines[1].Symbol)

	s := report.Summary
	rq.Equal(1, s.LongTermLines)
	rq.Equal(1, s.ShortTermLines)
	rq.Equal(1, s.DiscountLines)
	rq.True(s.TotalProceeds.Equal(d("2250")))
	rq.True(s.TotalCostBasis.Equal(d("1500")))
	rq.True(s.TotalCapitalGain.Equal(d("750")))
	rq.True(s.TotalTaxableGain.Equal(d("250")))
}

func TestProcessWithTaxOptimalStrategy(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2022-01-01": "1.0",
		"2024-03-01": "1.0",
		"2024-06-01": "1.0",
	}), NewTaxOptimalStrategy())

	report, snapshot := engine.Process([]models.Transaction{
		buy("2022-01-01", "AAPL", "10", "50", "0"),
		buy("2024-03-01", "AAPL", "10", "80", "0"),
		sell("2024-06-01", "AAPL", "5", "100", "0"),
	}, nil)

	rq.Equal(StrategyTaxOptimal, report.Strategy)
	rq.Len(report.Lines, 1)
	rq.Equal("2022-01-01", report.Lines[0].LotPurchaseDate.String())
	rq.True(report.Lines[0].DiscountApplied)

	rq.True(snapshot.TotalUnits().Equal(d("15")))
	rq.Len(snapshot.Symbols["AAPL"], 2)
}

func TestProcessSameDayBuyThenSell(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-01-01": "1.0",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2023-01-01", "AAPL", "10", "10", "0"),
		sell("2023-01-01", "AAPL", "10", "12", "0"),
	}, nil)

	rq.Len(report.Lines, 1)
	rq.Equal(0, report.Lines[0].DaysHeld)
	rq.False(report.Lines[0].LongTermEligible)
	rq.True(report.Lines[0].CapitalGainHome.Equal(d("20")))
}

func TestProcessSummaryMatchesLineSums(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2022-01-01": "0.7",
		"2023-06-01": "0.65",
		"2023-08-01": "0.68",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		buy("2022-01-01", "AAPL", "100", "10", "9.95"),
		sell("2023-06-01", "AAPL", "40", "15", "9.95"),
		sell("2023-08-01", "AAPL", "25", "8", "9.95"),
	}, nil)

	proceeds, basis, gain, taxable := d("0"), d("0"), d("0"), d("0")
	for _, line := range report.Lines {
		proceeds = proceeds.Add(line.ProceedsHome)
		basis = basis.Add(line.CostBasisHome)
		gain = gain.Add(line.CapitalGainHome)
		taxable = taxable.Add(line.TaxableGainHome)
		if line.DiscountApplied {
			rq.True(line.TaxableGainHome.Equal(line.CapitalGainHome.Mul(d("0.5"))))
		} else {
			rq.True(line.TaxableGainHome.Equal(line.CapitalGainHome))
		}
	}
	rq.True(report.Summary.TotalProceeds.Equal(proceeds))
	rq.True(report.Summary.TotalCostBasis.Equal(basis))
	rq.True(report.Summary.TotalCapitalGain.Equal(gain))
	rq.True(report.Summary.TotalTaxableGain.Equal(taxable))
}

func TestProcessWarningsMentionSymbolAndDate(t *testing.T) {
	rq := require.New(t)
	engine := NewCGTProcessor(testConverter(t, map[string]string{
		"2023-06-01": "1.0",
	}), NewFIFOStrategy())

	report, _ := engine.Process([]models.Transaction{
		sell("2023-06-01", "NVDA", "10", "10", "0"),
	}, nil)

	rq.Len(report.Warnings, 1)
	rq.True(strings.Contains(report.Warnings[0], "NVDA"))
	rq.True(strings.Contains(report.Warnings[0], "2023-06-01"))
}
