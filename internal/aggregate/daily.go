package aggregate

import (
	"math"
	"slices"
	"strings"

	"github.com/mmcloughlin/geohash"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// dailyKey groups hourly readings into one row per station cell per day.
type dailyKey struct {
	date    string
	city    string
	geohash string
}

func compareDailyKeys(a, b dailyKey) int {
	if c := strings.Compare(a.date, b.date); c != 0 {
		return c
	}
	if c := strings.Compare(a.city, b.city); c != 0 {
		return c
	}
	return strings.Compare(a.geohash, b.geohash)
}

type weatherGroup struct {
	temp, wind    stats
	precip        float64
	carrierTime   int64
	lat, lon      float64
	dateRetrieved string
	seen          bool
}

func (g *weatherGroup) add(r domain.WeatherReading) {
	g.temp.add(r.Temperature)
	g.wind.add(r.Windspeed)
	if r.Precipitation != nil {
		g.precip += *r.Precipitation
	}
	if !g.seen || earlier(r.Time, r.StationLat, r.StationLon, g.carrierTime, g.lat, g.lon) {
		g.carrierTime, g.lat, g.lon = r.Time, r.StationLat, r.StationLon
	}
	if !g.seen || r.DateRetrieved < g.dateRetrieved {
		g.dateRetrieved = r.DateRetrieved
	}
	g.seen = true
}

// DailyWeather rolls hourly weather readings up to one row per (date, city,
// geohash): min/max/avg temperature, summed precipitation, avg windspeed.
// It serves the historical and the forecast table alike; the two differ only
// in which bronze table the rows come from.
func DailyWeather(rows []domain.WeatherReading) ([]domain.DailySummary, error) {
	groups := make(map[dailyKey]*weatherGroup)
	for i := range rows {
		r := rows[i]
		if err := checkGroupingKey(i, r.Time, r.City, r.DateRetrieved); err != nil {
			return nil, err
		}
		key := dailyKey{
			date:    r.Date(),
			city:    r.City,
			geohash: geohash.EncodeWithPrecision(r.StationLat, r.StationLon, geohashPrecision),
		}
		g, ok := groups[key]
		if !ok {
			g = &weatherGroup{}
			groups[key] = g
		}
		g.add(r)
	}

	keys := make([]dailyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareDailyKeys)

	out := make([]domain.DailySummary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		s := domain.DailySummary{
			Date:               k.date,
			City:               k.city,
			Geohash:            k.geohash,
			TempMin:            g.temp.min(),
			TempMax:            g.temp.max(),
			TempAvg:            g.temp.avg(),
			TotalPrecipitation: g.precip,
			AvgWindspeed:       g.wind.avg(),
			Latitude:           g.lat,
			Longitude:          g.lon,
			DateRetrieved:      g.dateRetrieved,
		}
		if s.TempMin != nil && s.TempMax != nil {
			tempRange := *s.TempMax - *s.TempMin
			s.TempRange = &tempRange
		}
		out = append(out, s)
	}
	return out, nil
}

type airQualityGroup struct {
	pm10, pm25, co stats
	carrierTime    int64
	lat, lon       float64
	dateRetrieved  string
	seen           bool
}

func (g *airQualityGroup) add(r domain.AirQualityReading) {
	g.pm10.add(r.PM10)
	g.pm25.add(r.PM25)
	g.co.add(r.CarbonMonoxide)
	if !g.seen || earlier(r.Time, r.StationLat, r.StationLon, g.carrierTime, g.lat, g.lon) {
		g.carrierTime, g.lat, g.lon = r.Time, r.StationLat, r.StationLon
	}
	if !g.seen || r.DateRetrieved < g.dateRetrieved {
		g.dateRetrieved = r.DateRetrieved
	}
	g.seen = true
}

// DailyAirQuality rolls hourly pollutant readings up to one row per (date,
// city, geohash) with min/max/avg for pm10, pm2_5 and carbon monoxide. The
// aqi_simplified column is pm2_5_avg scaled so 25 μg/m³ maps to 100, capped
// at 100; it is a deliberately crude tier input, not a regulatory AQI.
func DailyAirQuality(rows []domain.AirQualityReading) ([]domain.AirQualityDaily, error) {
	groups := make(map[dailyKey]*airQualityGroup)
	for i := range rows {
		r := rows[i]
		if err := checkGroupingKey(i, r.Time, r.City, r.DateRetrieved); err != nil {
			return nil, err
		}
		key := dailyKey{
			date:    r.Date(),
			city:    r.City,
			geohash: geohash.EncodeWithPrecision(r.StationLat, r.StationLon, geohashPrecision),
		}
		g, ok := groups[key]
		if !ok {
			g = &airQualityGroup{}
			groups[key] = g
		}
		g.add(r)
	}

	keys := make([]dailyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareDailyKeys)

	out := make([]domain.AirQualityDaily, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		s := domain.AirQualityDaily{
			Date:          k.date,
			City:          k.city,
			Geohash:       k.geohash,
			PM10Min:       g.pm10.min(),
			PM10Max:       g.pm10.max(),
			PM10Avg:       g.pm10.avg(),
			PM25Min:       g.pm25.min(),
			PM25Max:       g.pm25.max(),
			PM25Avg:       g.pm25.avg(),
			COMin:         g.co.min(),
			COMax:         g.co.max(),
			COAvg:         g.co.avg(),
			Latitude:      g.lat,
			Longitude:     g.lon,
			DateRetrieved: g.dateRetrieved,
		}
		if avg := s.PM25Avg; avg != nil {
			aqi := math.Min(100, *avg/25*100)
			s.AQISimplified = &aqi
		}
		out = append(out, s)
	}
	return out, nil
}
