package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Roifine/us-stocks-cgt-helper/src/database"
	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/Roifine/us-stocks-cgt-helper/src/parsers"
)

const (
	// Every cached artifact for a user shares this prefix so one scan can
	// drop them all after an upload.
	ckUserScope = "res_cgt_user_%d_"

	ckReport   = ckUserScope + "report_%s_%s" // strategy, financial year or "all"
	ckSnapshot = ckUserScope + "snapshot_%s"  // strategy

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type ingestServiceImpl struct {
	parser      parsers.TransactionParser
	reportCache *cache.Cache
}

func NewIngestService(parser parsers.TransactionParser, reportCache *cache.Cache) IngestService {
	return &ingestServiceImpl{
		parser:      parser,
		reportCache: reportCache,
	}
}

func (s *ingestServiceImpl) ImportCSV(fileReader io.Reader, userID int64) (*models.UploadResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ImportCSV START", "userID", userID)

	txs, rowErrors, err := s.parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	result := &models.UploadResult{Rejected: rowErrors}
	if len(txs) == 0 {
		logger.L.Warn("ImportCSV found no valid rows", "userID", userID, "rejected", len(rowErrors))
		return result, nil
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	imported, duplicates, err := models.InsertTransactions(dbTx, userID, txs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}
	result.Imported = imported
	result.Duplicates = duplicates

	// The next report request triggers a full recalculation.
	s.InvalidateUserCache(userID)

	logger.L.Info("ImportCSV END", "userID", userID,
		"imported", imported, "duplicates", duplicates, "rejected", len(rowErrors),
		"duration", time.Since(overallStartTime))
	return result, nil
}

// InvalidateUserCache clears all cached reports and snapshots for a user.
func (s *ingestServiceImpl) InvalidateUserCache(userID int64) {
	prefix := fmt.Sprintf(ckUserScope, userID)
	for key := range s.reportCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.reportCache.Delete(key)
		}
	}
	logger.L.Info("Invalidated all caches for user", "userID", userID)
}
