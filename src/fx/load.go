package fx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/Roifine/us-stocks-cgt-helper/src/utils"
)

// Rate files are RBA-style CSVs: metadata and header rows followed by data
// rows whose first cell is a date and whose next cell is the AUD/USD rate.
// Published files use "4-Jan-2023" dates; re-exports often use ISO.
var rateDateLayouts = []string{utils.DateFormat, "2-Jan-2006"}

// LoadRatesCSV reads rate rows from the given CSV files. A missing or
// unreadable file is logged and skipped, so a partial rate history
// assembled from several downloads still loads. An error is returned only
// when no usable rate was found anywhere.
func LoadRatesCSV(paths ...string) ([]Rate, error) {
	var all []Rate
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			logger.L.Warn("Skipping exchange rate file", "path", path, "error", err)
			continue
		}
		rates, err := ParseRatesCSV(f)
		f.Close()
		if err != nil {
			logger.L.Warn("Skipping unparseable exchange rate file", "path", path, "error", err)
			continue
		}
		logger.L.Info("Loaded exchange rates", "path", path, "count", len(rates))
		all = append(all, rates...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no usable exchange rates in %d file(s): %s", len(paths), strings.Join(paths, ", "))
	}
	return all, nil
}

// ParseRatesCSV extracts rate rows from one CSV stream. Rows that do not
// start with a date cell followed by a numeric cell (titles, headers,
// footnotes) are skipped.
func ParseRatesCSV(r io.Reader) ([]Rate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rates []Rate
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("reading rates CSV: %w", err)
		}
		if rate, ok := parseRateRow(record); ok {
			rates = append(rates, rate)
		}
	}
	return rates, nil
}

func parseRateRow(record []string) (Rate, bool) {
	if len(record) < 2 {
		return Rate{}, false
	}
	date, ok := parseRateDate(record[0])
	if !ok {
		return Rate{}, false
	}
	value, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil || !value.IsPositive() {
		return Rate{}, false
	}
	return Rate{Date: date, Value: value}, true
}

func parseRateDate(cell string) (models.Date, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return models.Date{}, false
	}
	for _, layout := range rateDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return models.DateOf(t), true
		}
	}
	return models.Date{}, false
}
