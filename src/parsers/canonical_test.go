package parsers

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,symbol,activity,quantity,price_usd,commission_usd,source
2023-01-10,AAPL,PURCHASED,100,10.00,9.95,broker-a
2024-06-10,AAPL,SOLD,100,15.00,9.95,broker-a
2023-03-05,MSFT,BUY,5,250,,broker-b
`

func TestParseCanonicalCSV(t *testing.T) {
	rq := require.New(t)

	txs, rowErrors, err := NewCanonicalCSVParser().Parse(strings.NewReader(sampleCSV))
	rq.NoError(err)
	rq.Empty(rowErrors)
	rq.Len(txs, 3)

	first := txs[0]
	rq.Equal("AAPL", first.Symbol)
	rq.Equal("2023-01-10", first.Date.String())
	rq.Equal("BUY", string(first.Kind))
	rq.True(first.Quantity.Equal(decimal.NewFromInt(100)))
	rq.True(first.Commission.Equal(decimal.RequireFromString("9.95")))
	rq.Equal("broker-a", first.Source)
	rq.NotEmpty(first.HashID)

	rq.Equal("SELL", string(txs[1].Kind))

	// Missing commission cell defaults to zero.
	rq.True(txs[2].Commission.IsZero())
}

func TestParseCanonicalCSVHeaderVariants(t *testing.T) {
	rq := require.New(t)

	// Shuffled column order, BOM, uppercase header.
	input := "﻿SYMBOL,date,quantity,activity,PRICE_USD\n" +
		"AAPL,2023-01-10,100,buy,10\n"

	txs, rowErrors, err := NewCanonicalCSVParser().Parse(strings.NewReader(input))
	rq.NoError(err)
	rq.Empty(rowErrors)
	rq.Len(txs, 1)
	rq.Equal("AAPL", txs[0].Symbol)
	rq.True(txs[0].Commission.IsZero())
	rq.Empty(txs[0].Source)
}

func TestParseCanonicalCSVCollectsRowErrors(t *testing.T) {
	rq := require.New(t)

	input := `date,symbol,activity,quantity,price_usd
2023-01-10,AAPL,BUY,100,10
31/01/2023,AAPL,BUY,100,10
2023-01-12,AAPL,TRANSFER,100,10
2023-01-13,AAPL,BUY,abc,10
2023-01-14,AAPL,BUY,0,10
2023-01-15,MSFT,SELL,5,250
`

	txs, rowErrors, err := NewCanonicalCSVParser().Parse(strings.NewReader(input))
	rq.NoError(err)
	rq.Len(txs, 2)
	rq.Len(rowErrors, 4)

	rq.Equal(3, rowErrors[0].Line)
	rq.Contains(rowErrors[0].Message, "invalid date")
	rq.Equal(4, rowErrors[1].Line)
	rq.Contains(rowErrors[1].Message, "unknown activity")
	rq.Equal(5, rowErrors[2].Line)
	rq.Contains(rowErrors[2].Message, "invalid quantity")
	rq.Equal(6, rowErrors[3].Line)
	rq.Contains(rowErrors[3].Message, "non-positive quantity")
}

func TestParseCanonicalCSVRejectsBadHeader(t *testing.T) {
	rq := require.New(t)

	_, _, err := NewCanonicalCSVParser().Parse(strings.NewReader("date,symbol\n2023-01-10,AAPL\n"))
	rq.Error(err)
	rq.Contains(err.Error(), "missing required column")

	_, _, err = NewCanonicalCSVParser().Parse(strings.NewReader(""))
	rq.Error(err)
}

func TestParseCanonicalCSVSanitizesCells(t *testing.T) {
	rq := require.New(t)

	input := "date,symbol,activity,quantity,price_usd,source\n" +
		"2023-01-10,=AAPL,BUY,100,10,bro\x00ker\n"

	txs, rowErrors, err := NewCanonicalCSVParser().Parse(strings.NewReader(input))
	rq.NoError(err)
	rq.Empty(rowErrors)
	rq.Len(txs, 1)
	rq.Equal("'=AAPL", txs[0].Symbol)
	rq.Equal("broker", txs[0].Source)
}
