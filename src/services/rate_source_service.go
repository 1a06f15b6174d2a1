package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/Roifine/us-stocks-cgt-helper/src/fx"
	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
)

// RateSourceService pulls a fresh exchange rate CSV from a remote publisher
// (the RBA historical data endpoint in the default configuration).
type RateSourceService interface {
	FetchRates(ctx context.Context) ([]fx.Rate, error)
}

type rateSourceServiceImpl struct {
	httpClient http.Client
	sourceURL  string
}

func NewRateSourceService(sourceURL string) RateSourceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &rateSourceServiceImpl{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
		sourceURL: sourceURL,
	}
}

func (s *rateSourceServiceImpl) FetchRates(ctx context.Context) ([]fx.Rate, error) {
	if s.sourceURL == "" {
		return nil, errors.New("no rates source URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building rates request: %w", err)
	}
	// Some publishers reject requests without a browser User-Agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates from %s: %w", s.sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates source %s returned status %s", s.sourceURL, resp.Status)
	}

	rates, err := fx.ParseRatesCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing remote rates CSV: %w", err)
	}

	logger.L.Info("Fetched exchange rates from remote source", "url", s.sourceURL, "rates", len(rates))
	return rates, nil
}
