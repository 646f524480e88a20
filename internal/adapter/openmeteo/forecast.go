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

// ForecastExtractor pulls the hourly forecast for one site.
type ForecastExtractor struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    fetch.Backoff
	logger     *slog.Logger
}

// NewForecastExtractor creates a forecast extractor against the given API
// base URL.
func NewForecastExtractor(baseURL string, timeout time.Duration, logger *slog.Logger) *ForecastExtractor {
	return &ForecastExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: fetch.NewBreaker("openmeteo-forecast"),
		backoff: fetch.DefaultBackoff(),
		logger:  logger,
	}
}

// Extract fetches the hourly forecast for site. Rows come back without a
// city name; callers stamp it before writing.
func (e *ForecastExtractor) Extract(ctx context.Context, site domain.Site) ([]domain.WeatherReading, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", site.Latitude)},
		"longitude": {fmt.Sprintf("%f", site.Longitude)},
		"hourly":    {weatherMetrics},
	}
	endpoint := fmt.Sprintf("%s/v1/forecast?%s", e.baseURL, params.Encode())

	var payload weatherPayload
	if err := fetch.JSON(ctx, e.httpClient, e.breaker, e.backoff, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	rows, err := weatherRows(payload, site)
	if err != nil {
		return nil, fmt.Errorf("forecast response: %w", err)
	}

	e.logger.Info("extracted forecast",
		"rows", len(rows),
		"station_lat", payload.Latitude,
		"station_lon", payload.Longitude,
	)
	return rows, nil
}
