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

const airMetrics = "pm10,pm2_5,carbon_monoxide"

// AirQualityExtractor pulls hourly particulate and CO concentrations for
// one site.
type AirQualityExtractor struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    fetch.Backoff
	logger     *slog.Logger
}

// NewAirQualityExtractor creates an air-quality extractor against the given
// API base URL.
func NewAirQualityExtractor(baseURL string, timeout time.Duration, logger *slog.Logger) *AirQualityExtractor {
	return &AirQualityExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: fetch.NewBreaker("openmeteo-air-quality"),
		backoff: fetch.DefaultBackoff(),
		logger:  logger,
	}
}

// Extract fetches hourly air-quality readings for site.
func (e *AirQualityExtractor) Extract(ctx context.Context, site domain.Site) ([]domain.AirQualityReading, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", site.Latitude)},
		"longitude": {fmt.Sprintf("%f", site.Longitude)},
		"hourly":    {airMetrics},
	}
	endpoint := fmt.Sprintf("%s/v1/air-quality?%s", e.baseURL, params.Encode())

	var payload airPayload
	if err := fetch.JSON(ctx, e.httpClient, e.breaker, e.backoff, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch air quality: %w", err)
	}

	rows, err := airRows(payload, site)
	if err != nil {
		return nil, fmt.Errorf("air quality response: %w", err)
	}

	e.logger.Info("extracted air quality",
		"rows", len(rows),
		"station_lat", payload.Latitude,
		"station_lon", payload.Longitude,
	)
	return rows, nil
}
