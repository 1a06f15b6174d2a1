package services

import (
	"errors"
	"io"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
)

var (
	// ErrParsingFailed marks upload errors caused by the file itself.
	ErrParsingFailed = errors.New("parsing failed")
	// ErrProcessingFailed marks errors raised while computing results.
	ErrProcessingFailed = errors.New("processing failed")
)

// IngestService imports canonical CSV uploads into a user's transaction store.
type IngestService interface {
	ImportCSV(fileReader io.Reader, userID int64) (*models.UploadResult, error)
	InvalidateUserCache(userID int64)
}

// ReportService computes capital gains reports and cost basis snapshots
// from a user's stored transactions.
type ReportService interface {
	GetReport(userID int64, strategyName string, year *models.FinancialYear) (*models.CGTReport, error)
	GetSnapshot(userID int64, strategyName string) (*models.CostBasisSnapshot, error)
}
