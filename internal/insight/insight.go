// Package insight joins forecast-day weather with same-day air quality and
// scores the pair into the gold combined table's rows. Thresholds follow the
// published rule tables; changing them changes the product.
package insight

import (
	"math"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

type joinKey struct {
	date string
	city string
}

// Combine matches each forecast summary with the air-quality summary of the
// same (date, city) and emits one scored row per match. When several air
// rows share a key, the lexicographically smallest geohash wins. Forecast
// rows with no match, or with any required scored field nil, are excluded:
// missing input means no insight, not a zeroed one. Output preserves
// forecast order; coordinates, geohash and date_retrieved carry from the
// weather side.
func Combine(forecasts []domain.DailySummary, air []domain.AirQualityDaily) []domain.ForecastInsight {
	index := make(map[joinKey]domain.AirQualityDaily, len(air))
	for _, a := range air {
		k := joinKey{date: a.Date, city: a.City}
		if cur, ok := index[k]; !ok || a.Geohash < cur.Geohash {
			index[k] = a
		}
	}

	out := make([]domain.ForecastInsight, 0, len(forecasts))
	for _, f := range forecasts {
		a, ok := index[joinKey{date: f.Date, city: f.City}]
		if !ok {
			continue
		}
		if f.TempMin == nil || f.TempMax == nil || f.TempAvg == nil || f.TempRange == nil ||
			f.AvgWindspeed == nil || a.PM10Avg == nil || a.PM25Avg == nil || a.AQISimplified == nil {
			continue
		}

		out = append(out, domain.ForecastInsight{
			Date:               f.Date,
			City:               f.City,
			Geohash:            f.Geohash,
			TempMin:            *f.TempMin,
			TempMax:            *f.TempMax,
			TempAvg:            *f.TempAvg,
			TempRange:          *f.TempRange,
			TotalPrecipitation: f.TotalPrecipitation,
			AvgWindspeed:       *f.AvgWindspeed,
			PM10Avg:            *a.PM10Avg,
			PM25Avg:            *a.PM25Avg,
			COAvg:              a.COAvg,
			AQISimplified:      *a.AQISimplified,
			HealthAlert:        healthAlert(*a.AQISimplified, *f.TempMax),
			AllergyRisk:        allergyRisk(*a.PM10Avg, *a.PM25Avg, *f.AvgWindspeed),
			OutdoorScore:       outdoorScore(*a.AQISimplified, *f.TempAvg, f.TotalPrecipitation, *f.AvgWindspeed),
			Latitude:           f.Latitude,
			Longitude:          f.Longitude,
			DateRetrieved:      f.DateRetrieved,
		})
	}
	return out
}

func healthAlert(aqi, tempMax float64) string {
	switch {
	case aqi >= 75:
		return domain.HealthAlertHigh
	case aqi >= 50 || tempMax >= 35:
		return domain.HealthAlertModerate
	case aqi >= 25:
		return domain.HealthAlertLow
	default:
		return domain.HealthAlertGood
	}
}

func allergyRisk(pm10Avg, pm25Avg, avgWindspeed float64) string {
	switch {
	case pm10Avg >= 50 && avgWindspeed >= 20:
		return domain.AllergyRiskHigh
	case pm10Avg >= 25 || pm25Avg >= 15:
		return domain.AllergyRiskModerate
	default:
		return domain.AllergyRiskLow
	}
}

// outdoorScore rates a day 0-100 for being outside. Penalties are linear in
// how far each input sits past its comfort threshold; the precipitation
// penalty saturates at 20. The float score is truncated, then clamped.
func outdoorScore(aqi, tempAvg, totalPrecipitation, avgWindspeed float64) int32 {
	score := 100 - 0.5*aqi
	if tempAvg > 28 {
		score -= 2 * (tempAvg - 28)
	}
	if tempAvg < 15 {
		score -= 1.5 * (15 - tempAvg)
	}
	if totalPrecipitation > 0 {
		score -= math.Min(20, totalPrecipitation*10)
	}
	if avgWindspeed > 30 {
		score -= avgWindspeed - 30
	}

	n := int32(score)
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
