package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/fetch"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

var testSite = domain.Site{Latitude: -34.611778, Longitude: -58.417309}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastBackoff() fetch.Backoff {
	return fetch.Backoff{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}
}

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 12, 8, 15, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func fptr(v float64) *float64 { return &v }

func TestForecastExtractor_Extract(t *testing.T) {
	freezeClock(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "-34.611778", r.URL.Query().Get("latitude"))
		assert.Equal(t, "-58.417309", r.URL.Query().Get("longitude"))
		assert.Equal(t, "temperature_2m,precipitation,windspeed_10m", r.URL.Query().Get("hourly"))

		w.Write([]byte(`{
			"latitude": -34.625,
			"longitude": -58.5,
			"hourly": {
				"time": ["2025-12-08T00:00", "2025-12-08T01:00"],
				"temperature_2m": [21.5, null],
				"precipitation": [0, 0.3],
				"windspeed_10m": [12.5, 14]
			}
		}`))
	}))
	defer srv.Close()

	e := &ForecastExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	rows, err := e.Extract(context.Background(), testSite)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC).UnixMilli(), first.Time)
	assert.Equal(t, fptr(21.5), first.Temperature)
	assert.Equal(t, fptr(0.0), first.Precipitation)
	assert.Equal(t, fptr(12.5), first.Windspeed)
	assert.Equal(t, -34.625, first.StationLat)
	assert.Equal(t, -58.5, first.StationLon)
	assert.Equal(t, testSite.Latitude, first.RequestedLat)
	assert.Equal(t, testSite.Longitude, first.RequestedLon)
	assert.Equal(t, "2025-12-08", first.DateRetrieved)
	assert.Empty(t, first.City)

	assert.Nil(t, rows[1].Temperature)
	assert.Equal(t, fptr(0.3), rows[1].Precipitation)
}

func TestForecastExtractor_ShortMetricArray(t *testing.T) {
	freezeClock(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"latitude": -34.625,
			"longitude": -58.5,
			"hourly": {
				"time": ["2025-12-08T00:00", "2025-12-08T01:00"],
				"temperature_2m": [21.5]
			}
		}`))
	}))
	defer srv.Close()

	e := &ForecastExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	rows, err := e.Extract(context.Background(), testSite)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, fptr(21.5), rows[0].Temperature)
	assert.Nil(t, rows[1].Temperature)
	assert.Nil(t, rows[0].Precipitation)
	assert.Nil(t, rows[0].Windspeed)
}

func TestForecastExtractor_MalformedTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"latitude": -34.625,
			"longitude": -58.5,
			"hourly": {"time": ["12/08/2025"], "temperature_2m": [21.5]}
		}`))
	}))
	defer srv.Close()

	e := &ForecastExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	_, err := e.Extract(context.Background(), testSite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12/08/2025")
}

func TestForecastExtractor_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := &ForecastExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	_, err := e.Extract(context.Background(), testSite)
	require.ErrorIs(t, err, fetch.ErrServerError)
}

func TestHistoricalExtractor_Extract(t *testing.T) {
	freezeClock(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/archive", r.URL.Path)
		assert.Equal(t, "2025-12-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-12-08", r.URL.Query().Get("end_date"))
		assert.Equal(t, "temperature_2m,precipitation,windspeed_10m", r.URL.Query().Get("hourly"))

		w.Write([]byte(`{
			"latitude": -31.375,
			"longitude": -64.25,
			"hourly": {
				"time": ["2025-12-01T09:00"],
				"temperature_2m": [18.2],
				"precipitation": [1.1],
				"windspeed_10m": [7.5]
			}
		}`))
	}))
	defer srv.Close()

	e := &HistoricalExtractor{
		baseURL:      srv.URL,
		lookbackDays: 7,
		httpClient:   srv.Client(),
		breaker:      fetch.NewBreaker(t.Name()),
		backoff:      fastBackoff(),
		logger:       testLogger(),
	}

	site := domain.Site{Latitude: -31.4135, Longitude: -64.181056}
	rows, err := e.Extract(context.Background(), site)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC).UnixMilli(), row.Time)
	assert.Equal(t, fptr(18.2), row.Temperature)
	assert.Equal(t, -31.375, row.StationLat)
	assert.Equal(t, site.Latitude, row.RequestedLat)
	assert.Equal(t, "2025-12-08", row.DateRetrieved)
}

func TestAirQualityExtractor_Extract(t *testing.T) {
	freezeClock(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/air-quality", r.URL.Path)
		assert.Equal(t, "pm10,pm2_5,carbon_monoxide", r.URL.Query().Get("hourly"))

		w.Write([]byte(`{
			"latitude": -34.6,
			"longitude": -58.45,
			"hourly": {
				"time": ["2025-12-08T00:00", "2025-12-08T01:00"],
				"pm10": [30.5, 32],
				"pm2_5": [null, 15.5],
				"carbon_monoxide": [210, 215]
			}
		}`))
	}))
	defer srv.Close()

	e := &AirQualityExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	rows, err := e.Extract(context.Background(), testSite)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, fptr(30.5), rows[0].PM10)
	assert.Nil(t, rows[0].PM25)
	assert.Equal(t, fptr(210.0), rows[0].CarbonMonoxide)
	assert.Equal(t, fptr(15.5), rows[1].PM25)
	assert.Equal(t, -34.6, rows[0].StationLat)
	assert.Equal(t, testSite.Latitude, rows[0].RequestedLat)
	assert.Equal(t, "2025-12-08", rows[0].DateRetrieved)
	assert.Empty(t, rows[0].City)
}

// --- fixtures ---

func serveFixture(t *testing.T, path string) *httptest.Server {
	t.Helper()
	payload, err := os.ReadFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestForecastExtractor_MockFixture(t *testing.T) {
	freezeClock(t)
	srv := serveFixture(t, "../../../data/mock/openmeteo_forecast.json")

	e := &ForecastExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	rows, err := e.Extract(context.Background(), testSite)
	require.NoError(t, err)
	require.Len(t, rows, 24)

	assert.Equal(t, time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC).UnixMilli(), rows[0].Time)
	assert.Equal(t, fptr(23.1), rows[0].Temperature)
	assert.Nil(t, rows[3].Temperature)
	assert.Equal(t, fptr(30.6), rows[15].Temperature)
	assert.Equal(t, fptr(2.8), rows[18].Precipitation)
	assert.Equal(t, fptr(24.6), rows[17].Windspeed)

	withTemp := 0
	for _, r := range rows {
		if r.Temperature != nil {
			withTemp++
		}
		assert.Equal(t, -34.625, r.StationLat)
		assert.Equal(t, "2025-12-08", r.DateRetrieved)
	}
	assert.Equal(t, 23, withTemp)
}

func TestAirQualityExtractor_MockFixture(t *testing.T) {
	freezeClock(t)
	srv := serveFixture(t, "../../../data/mock/openmeteo_air_quality.json")

	e := &AirQualityExtractor{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		breaker:    fetch.NewBreaker(t.Name()),
		backoff:    fastBackoff(),
		logger:     testLogger(),
	}

	rows, err := e.Extract(context.Background(), testSite)
	require.NoError(t, err)
	require.Len(t, rows, 24)

	assert.Equal(t, fptr(24.3), rows[0].PM10)
	assert.Equal(t, fptr(12.6), rows[0].PM25)
	assert.Nil(t, rows[3].CarbonMonoxide)
	assert.Equal(t, fptr(371.0), rows[19].CarbonMonoxide)
	assert.Equal(t, fptr(21.7), rows[19].PM25)

	for _, r := range rows {
		require.NotNil(t, r.PM10)
		require.NotNil(t, r.PM25)
		assert.Greater(t, *r.PM10, *r.PM25)
		assert.Equal(t, "2025-12-08", r.DateRetrieved)
	}
}
