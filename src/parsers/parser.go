package parsers

import (
	"io"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
)

// TransactionParser turns an uploaded statement into canonical transactions.
// Rows that fail validation come back as RowErrors while the rest of the
// file keeps parsing; the error return is reserved for unusable input
// (unreadable stream, missing header).
type TransactionParser interface {
	Parse(file io.Reader) ([]models.Transaction, []models.RowError, error)
}
