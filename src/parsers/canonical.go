package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/Roifine/us-stocks-cgt-helper/src/security/validation"
)

// Canonical CSV column names. Header order is free and extra columns are
// ignored; commission_usd and source are optional.
const (
	colDate       = "date"
	colSymbol     = "symbol"
	colActivity   = "activity"
	colQuantity   = "quantity"
	colPrice      = "price_usd"
	colCommission = "commission_usd"
	colSource     = "source"
)

var requiredColumns = []string{colDate, colSymbol, colActivity, colQuantity, colPrice}

// CanonicalCSVParser reads the canonical transaction CSV. Every cell is
// stripped of unprintable characters, and symbol/source are quoted against
// spreadsheet formula injection since they round-trip back out of the API.
type CanonicalCSVParser struct{}

func NewCanonicalCSVParser() *CanonicalCSVParser {
	return &CanonicalCSVParser{}
}

func (p *CanonicalCSVParser) Parse(file io.Reader) ([]models.Transaction, []models.RowError, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("empty file")
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		transactions []models.Transaction
		rowErrors    []models.RowError
	)
	// Line counts CSV records, header included.
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrors = append(rowErrors, models.RowError{Line: line, Message: parseErr.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		tx, err := parseRow(record, columns)
		if err != nil {
			rowErrors = append(rowErrors, models.RowError{Line: line, Message: err.Error()})
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, rowErrors, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "﻿")))
		if _, exists := columns[normalized]; !exists {
			columns[normalized] = i
		}
	}
	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRow(record []string, columns map[string]int) (models.Transaction, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return validation.StripUnprintable(strings.TrimSpace(record[idx]))
	}

	date, err := models.ParseDate(cell(colDate))
	if err != nil {
		return models.Transaction{}, err
	}
	kind, err := models.ParseTransactionKind(cell(colActivity))
	if err != nil {
		return models.Transaction{}, err
	}
	quantity, err := decimal.NewFromString(cell(colQuantity))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: invalid quantity %q", models.ErrInvalidTransaction, cell(colQuantity))
	}
	price, err := decimal.NewFromString(cell(colPrice))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: invalid price %q", models.ErrInvalidTransaction, cell(colPrice))
	}
	commission := decimal.Zero
	if raw := cell(colCommission); raw != "" {
		commission, err = decimal.NewFromString(raw)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("%w: invalid commission %q", models.ErrInvalidTransaction, raw)
		}
	}

	tx := models.Transaction{
		Symbol:     validation.SanitizeForFormulaInjection(cell(colSymbol)),
		Date:       date,
		Kind:       kind,
		Quantity:   quantity,
		UnitPrice:  price,
		Commission: commission,
		Source:     validation.SanitizeForFormulaInjection(cell(colSource)),
	}
	if err := tx.Validate(); err != nil {
		return models.Transaction{}, err
	}
	tx.HashID = tx.ComputeHashID()
	return tx, nil
}
