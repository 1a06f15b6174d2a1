package services

import (
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/Roifine/us-stocks-cgt-helper/src/database"
	"github.com/Roifine/us-stocks-cgt-helper/src/fx"
	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/Roifine/us-stocks-cgt-helper/src/processors"
)

type reportServiceImpl struct {
	converter   *fx.Converter
	reportCache *cache.Cache
}

func NewReportService(converter *fx.Converter, reportCache *cache.Cache) ReportService {
	return &reportServiceImpl{
		converter:   converter,
		reportCache: reportCache,
	}
}

func (s *reportServiceImpl) GetReport(userID int64, strategyName string, year *models.FinancialYear) (*models.CGTReport, error) {
	strategy, err := processors.NewStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	yearKey := "all"
	if year != nil {
		yearKey = year.String()
	}
	cacheKey := fmt.Sprintf(ckReport, userID, strategy.Name(), yearKey)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for CGT report", "userID", userID, "key", cacheKey)
		return cached.(*models.CGTReport), nil
	}

	logger.L.Info("Cache miss for CGT report, computing from DB",
		"userID", userID, "strategy", strategy.Name(), "year", yearKey)
	report, _, err := s.compute(userID, strategy, year)
	if err != nil {
		return nil, err
	}
	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

func (s *reportServiceImpl) GetSnapshot(userID int64, strategyName string) (*models.CostBasisSnapshot, error) {
	strategy, err := processors.NewStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf(ckSnapshot, userID, strategy.Name())
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for cost basis snapshot", "userID", userID, "key", cacheKey)
		return cached.(*models.CostBasisSnapshot), nil
	}

	logger.L.Info("Cache miss for cost basis snapshot, computing from DB",
		"userID", userID, "strategy", strategy.Name())
	report, snapshot, err := s.compute(userID, strategy, nil)
	if err != nil {
		return nil, err
	}

	// The unfiltered pass produced the full report too, so cache both.
	s.reportCache.Set(cacheKey, snapshot, DefaultCacheExpiration)
	s.reportCache.Set(fmt.Sprintf(ckReport, userID, strategy.Name(), "all"), report, DefaultCacheExpiration)
	return snapshot, nil
}

// compute loads a user's transactions and runs the matching engine over them.
func (s *reportServiceImpl) compute(userID int64, strategy processors.LotSelectionStrategy, year *models.FinancialYear) (*models.CGTReport, *models.CostBasisSnapshot, error) {
	txs, err := models.GetTransactionsByUser(database.DB, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	engine := processors.NewCGTProcessor(s.converter, strategy)
	report, snapshot := engine.Process(txs, year)
	return report, snapshot, nil
}
