package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Roifine/us-stocks-cgt-helper/src/config"
	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/Roifine/us-stocks-cgt-helper/src/processors"
	"github.com/Roifine/us-stocks-cgt-helper/src/services"
	"github.com/Roifine/us-stocks-cgt-helper/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// reportParams reads the strategy and financial year query parameters,
// falling back to the configured default strategy.
func reportParams(r *http.Request) (strategy string, year *models.FinancialYear, err error) {
	strategy = r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = config.Cfg.DefaultStrategy
	}

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		fy, parseErr := models.ParseFinancialYear(yearStr)
		if parseErr != nil {
			return "", nil, parseErr
		}
		year = &fy
	}
	return strategy, year, nil
}

func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	strategy, year, err := reportParams(r)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid year parameter: %v", err), http.StatusBadRequest)
		return
	}

	report, err := h.reportService.GetReport(userID, strategy, year)
	if err != nil {
		if errors.Is(err, processors.ErrUnknownStrategy) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error computing CGT report", "userID", userID, "strategy", strategy, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error computing CGT report for userID %d", userID), http.StatusInternalServerError)
		return
	}

	writeJSONWithETag(w, r, userID, report)
}

func (h *ReportHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = config.Cfg.DefaultStrategy
	}

	snapshot, err := h.reportService.GetSnapshot(userID, strategy)
	if err != nil {
		if errors.Is(err, processors.ErrUnknownStrategy) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error computing cost basis snapshot", "userID", userID, "strategy", strategy, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error computing cost basis snapshot for userID %d", userID), http.StatusInternalServerError)
		return
	}

	writeJSONWithETag(w, r, userID, snapshot)
}

// writeJSONWithETag encodes payload with an ETag header and honors
// If-None-Match with 304 responses.
func writeJSONWithETag(w http.ResponseWriter, r *http.Request, userID int64, payload interface{}) {
	currentETag, etagErr := utils.GenerateETag(payload)

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				logger.L.Debug("ETag match, returning 304", "userID", userID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "userID", userID, "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Error encoding JSON response", "userID", userID, "error", err)
	}
}
