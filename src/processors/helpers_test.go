package processors

import (
	"testing"

	"github.com/Roifine/us-stocks-cgt-helper/src/fx"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) models.Date {
	date, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return date
}

func fy(s string) models.FinancialYear {
	year, err := models.ParseFinancialYear(s)
	if err != nil {
		panic(err)
	}
	return year
}

// lot builds an open lot priced at rate 1 so foreign and home figures match.
func lot(dateStr, units, price, commission string) models.PurchaseLot {
	return models.PurchaseLot{
		ID:                uuid.New(),
		Symbol:            "AAPL",
		PurchaseDate:      day(dateStr),
		UnitsRemaining:    d(units),
		UnitPriceForeign:  d(price),
		CommissionForeign: d(commission),
		UnitPriceHome:     d(price),
		CommissionHome:    d(commission),
		ExchangeRate:      d("1"),
	}
}

func buy(dateStr, symbol, qty, price, commission string) models.Transaction {
	return models.Transaction{
		Symbol:     symbol,
		Date:       day(dateStr),
		Kind:       models.KindBuy,
		Quantity:   d(qty),
		UnitPrice:  d(price),
		Commission: d(commission),
		Source:     "test",
	}
}

func sell(dateStr, symbol, qty, price, commission string) models.Transaction {
	tx := buy(dateStr, symbol, qty, price, commission)
	tx.Kind = models.KindSell
	return tx
}

func testConverter(t *testing.T, rates map[string]string) *fx.Converter {
	t.Helper()
	rows := make([]fx.Rate, 0, len(rates))
	for dateStr, rate := range rates {
		rows = append(rows, fx.Rate{Date: day(dateStr), Value: d(rate)})
	}
	table, err := fx.NewRateTable(rows, fx.DefaultBand())
	require.NoError(t, err)
	converter, err := fx.NewConverter(table)
	require.NoError(t, err)
	return converter
}
