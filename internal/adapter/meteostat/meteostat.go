// Package meteostat extracts nearby weather stations from the Meteostat
// API on RapidAPI.
package meteostat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/fetch"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// StationsExtractor pulls the stations nearest to one site. RapidAPI
// authenticates through the X-RapidAPI-Host and X-RapidAPI-Key headers.
type StationsExtractor struct {
	host       string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    fetch.Backoff
	logger     *slog.Logger
}

// NewStationsExtractor creates a stations extractor. host is the bare
// RapidAPI host name, without a scheme.
func NewStationsExtractor(host, apiKey string, timeout time.Duration, logger *slog.Logger) *StationsExtractor {
	return &StationsExtractor{
		host:   host,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: fetch.NewBreaker("meteostat-stations"),
		backoff: fetch.DefaultBackoff(),
		logger:  logger,
	}
}

// Extract fetches up to 50 stations within 100km of site.
func (e *StationsExtractor) Extract(ctx context.Context, site domain.Site) ([]domain.StationRecord, error) {
	params := url.Values{
		"lat":    {fmt.Sprintf("%f", site.Latitude)},
		"lon":    {fmt.Sprintf("%f", site.Longitude)},
		"limit":  {"50"},
		"radius": {"100000"},
	}
	endpoint := fmt.Sprintf("https://%s/stations/nearby?%s", e.host, params.Encode())

	header := http.Header{}
	header.Set("X-RapidAPI-Host", e.host)
	header.Set("X-RapidAPI-Key", e.apiKey)

	var payload stationsPayload
	if err := fetch.JSON(ctx, e.httpClient, e.breaker, e.backoff, endpoint, header, &payload); err != nil {
		return nil, fmt.Errorf("fetch stations: %w", err)
	}

	retrieved := domain.Today()
	rows := make([]domain.StationRecord, 0, len(payload.Data))
	for _, st := range payload.Data {
		name, lang := flattenName(st.Name)
		rows = append(rows, domain.StationRecord{
			StationID:     st.ID,
			Name:          name,
			NameLanguage:  lang,
			Country:       st.Country,
			Region:        st.Region,
			Latitude:      st.Latitude,
			Longitude:     st.Longitude,
			Elevation:     st.Elevation,
			DistanceM:     st.Distance,
			GeneratedAt:   payload.Meta.Generated,
			RequestedLat:  site.Latitude,
			RequestedLon:  site.Longitude,
			DateRetrieved: retrieved,
		})
	}

	e.logger.Info("extracted stations", "rows", len(rows))
	return rows, nil
}

// flattenName picks one entry of the language-keyed station name: English
// when present, otherwise the lexicographically first key so reruns are
// deterministic.
func flattenName(names map[string]string) (name, lang string) {
	if v, ok := names["en"]; ok {
		return v, "en"
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", ""
	}
	sort.Strings(keys)
	return names[keys[0]], keys[0]
}

// Meteostat API response types.

type stationsPayload struct {
	Meta struct {
		Generated string `json:"generated"`
	} `json:"meta"`
	Data []station `json:"data"`
}

type station struct {
	ID        string            `json:"id"`
	Name      map[string]string `json:"name"`
	Country   string            `json:"country"`
	Region    *string           `json:"region"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Elevation *float64          `json:"elevation"`
	Distance  float64           `json:"distance"`
}
