package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/fetch"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// HistoricalExtractor pulls hourly observations from the archive endpoint
// for a trailing window ending today.
type HistoricalExtractor struct {
	baseURL      string
	lookbackDays int
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker
	backoff      fetch.Backoff
	logger       *slog.Logger
}

// NewHistoricalExtractor creates an archive extractor covering the trailing
// lookbackDays window.
func NewHistoricalExtractor(baseURL string, lookbackDays int, timeout time.Duration, logger *slog.Logger) *HistoricalExtractor {
	return &HistoricalExtractor{
		baseURL:      strings.TrimRight(baseURL, "/"),
		lookbackDays: lookbackDays,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: fetch.NewBreaker("openmeteo-archive"),
		backoff: fetch.DefaultBackoff(),
		logger:  logger,
	}
}

// Extract fetches hourly observations for site between today-lookback and
// today. The window is recomputed each call so a long-lived daemon keeps
// sliding forward.
func (e *HistoricalExtractor) Extract(ctx context.Context, site domain.Site) ([]domain.WeatherReading, error) {
	end := domain.Now()
	start := end.AddDate(0, 0, -e.lookbackDays)

	params := url.Values{
		"latitude":   {fmt.Sprintf("%f", site.Latitude)},
		"longitude":  {fmt.Sprintf("%f", site.Longitude)},
		"hourly":     {weatherMetrics},
		"start_date": {start.Format(domain.DateLayout)},
		"end_date":   {end.Format(domain.DateLayout)},
	}
	endpoint := fmt.Sprintf("%s/v1/archive?%s", e.baseURL, params.Encode())

	var payload weatherPayload
	if err := fetch.JSON(ctx, e.httpClient, e.breaker, e.backoff, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch archive: %w", err)
	}

	rows, err := weatherRows(payload, site)
	if err != nil {
		return nil, fmt.Errorf("archive response: %w", err)
	}

	e.logger.Info("extracted historical",
		"rows", len(rows),
		"start_date", start.Format(domain.DateLayout),
		"end_date", end.Format(domain.DateLayout),
	)
	return rows, nil
}
