package processors

import (
	"fmt"
	"sort"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
)

// TransactionProcessor screens and orders the canonical stream before the
// engine runs it. Invalid rows are reported and dropped; the rest proceed.
type TransactionProcessor struct{}

func NewTransactionProcessor() *TransactionProcessor {
	return &TransactionProcessor{}
}

// Prepare validates every transaction, fills in missing hash ids, groups the
// valid ones by symbol and sorts each symbol's stream chronologically.
// Same-day transactions keep their input order.
func (p *TransactionProcessor) Prepare(transactions []models.Transaction) (map[string][]models.Transaction, []error) {
	bySymbol := make(map[string][]models.Transaction)
	var rejected []error

	for i, tx := range transactions {
		if err := tx.Validate(); err != nil {
			rejected = append(rejected, fmt.Errorf("transaction %d skipped: %w", i+1, err))
			continue
		}
		if tx.HashID == "" {
			tx.HashID = tx.ComputeHashID()
		}
		bySymbol[tx.Symbol] = append(bySymbol[tx.Symbol], tx)
	}

	for symbol := range bySymbol {
		sortTransactionsByDate(bySymbol[symbol])
	}
	return bySymbol, rejected
}

func sortTransactionsByDate(transactions []models.Transaction) {
	sort.SliceStable(transactions, func(a, b int) bool {
		return transactions[a].Date.Before(transactions[b].Date.Time)
	})
}

func sortedSymbols(bySymbol map[string][]models.Transaction) []string {
	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
