// Package openmeteo extracts hourly weather and air-quality readings from
// the Open-Meteo HTTP APIs. All three endpoints share the same response
// shape: grid-point coordinates at the top level and parallel arrays under
// "hourly", with null for hours a metric is missing.
package openmeteo

import (
	"fmt"
	"time"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// hourlyTimeLayout is the timestamp form of the hourly time array. The API
// omits the zone; values are UTC.
const hourlyTimeLayout = "2006-01-02T15:04"

const weatherMetrics = "temperature_2m,precipitation,windspeed_10m"

type weatherPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Hourly    struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		Precipitation []*float64 `json:"precipitation"`
		Windspeed     []*float64 `json:"windspeed_10m"`
	} `json:"hourly"`
}

type airPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Hourly    struct {
		Time           []string   `json:"time"`
		PM10           []*float64 `json:"pm10"`
		PM25           []*float64 `json:"pm2_5"`
		CarbonMonoxide []*float64 `json:"carbon_monoxide"`
	} `json:"hourly"`
}

func weatherRows(p weatherPayload, site domain.Site) ([]domain.WeatherReading, error) {
	retrieved := domain.Today()
	rows := make([]domain.WeatherReading, 0, len(p.Hourly.Time))
	for i, ts := range p.Hourly.Time {
		t, err := time.ParseInLocation(hourlyTimeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse hourly time %q: %w", ts, err)
		}
		rows = append(rows, domain.WeatherReading{
			Time:          t.UnixMilli(),
			Temperature:   metricAt(p.Hourly.Temperature, i),
			Precipitation: metricAt(p.Hourly.Precipitation, i),
			Windspeed:     metricAt(p.Hourly.Windspeed, i),
			StationLat:    p.Latitude,
			StationLon:    p.Longitude,
			RequestedLat:  site.Latitude,
			RequestedLon:  site.Longitude,
			DateRetrieved: retrieved,
		})
	}
	return rows, nil
}

func airRows(p airPayload, site domain.Site) ([]domain.AirQualityReading, error) {
	retrieved := domain.Today()
	rows := make([]domain.AirQualityReading, 0, len(p.Hourly.Time))
	for i, ts := range p.Hourly.Time {
		t, err := time.ParseInLocation(hourlyTimeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse hourly time %q: %w", ts, err)
		}
		rows = append(rows, domain.AirQualityReading{
			Time:           t.UnixMilli(),
			PM10:           metricAt(p.Hourly.PM10, i),
			PM25:           metricAt(p.Hourly.PM25, i),
			CarbonMonoxide: metricAt(p.Hourly.CarbonMonoxide, i),
			StationLat:     p.Latitude,
			StationLon:     p.Longitude,
			RequestedLat:   site.Latitude,
			RequestedLon:   site.Longitude,
			DateRetrieved:  retrieved,
		})
	}
	return rows, nil
}

// metricAt guards against a metric array shorter than the time array, which
// the API produces when a metric is unavailable for the whole range.
func metricAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
