package aggregate

import (
	"slices"
	"strings"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

type hourlyKey struct {
	hour int
	city string
}

type hourlyGroup struct {
	temp, precip, wind stats
	dates              map[string]struct{}
}

// HourlyPatterns folds historical readings into one row per (hour of day,
// city) across every retrieved date: what noon typically looks like in each
// city. DaysCount is the number of distinct dates in the bucket, so thin
// buckets are recognizable downstream.
func HourlyPatterns(rows []domain.WeatherReading) ([]domain.HourlyPattern, error) {
	groups := make(map[hourlyKey]*hourlyGroup)
	for i := range rows {
		r := rows[i]
		if err := checkGroupingKey(i, r.Time, r.City, r.DateRetrieved); err != nil {
			return nil, err
		}
		key := hourlyKey{hour: r.Hour(), city: r.City}
		g, ok := groups[key]
		if !ok {
			g = &hourlyGroup{dates: make(map[string]struct{})}
			groups[key] = g
		}
		g.temp.add(r.Temperature)
		g.precip.add(r.Precipitation)
		g.wind.add(r.Windspeed)
		g.dates[r.Date()] = struct{}{}
	}

	keys := make([]hourlyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b hourlyKey) int {
		if a.hour != b.hour {
			return a.hour - b.hour
		}
		return strings.Compare(a.city, b.city)
	})

	out := make([]domain.HourlyPattern, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, domain.HourlyPattern{
			Hour:             int32(k.hour),
			City:             k.city,
			TempMin:          g.temp.min(),
			TempMax:          g.temp.max(),
			TempAvg:          g.temp.avg(),
			PrecipitationAvg: g.precip.avg(),
			WindspeedAvg:     g.wind.avg(),
			DaysCount:        int64(len(g.dates)),
		})
	}
	return out, nil
}
