package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcloughlin/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

const (
	testCity      = "buenos_aires"
	testLat       = -34.611778
	testLon       = -58.417309
	testDay       = "2025-12-01"
	testRetrieved = "2025-12-08"
)

func fptr(v float64) *float64 { return &v }

func tsAt(date string, hour int) int64 {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour).UnixMilli()
}

func reading(date string, hour int, temp, precip, wind *float64) domain.WeatherReading {
	return domain.WeatherReading{
		Time:          tsAt(date, hour),
		Temperature:   temp,
		Precipitation: precip,
		Windspeed:     wind,
		StationLat:    testLat,
		StationLon:    testLon,
		RequestedLat:  testLat,
		RequestedLon:  testLon,
		DateRetrieved: testRetrieved,
		City:          testCity,
	}
}

func airReading(date string, hour int, pm10, pm25, co *float64) domain.AirQualityReading {
	return domain.AirQualityReading{
		Time:           tsAt(date, hour),
		PM10:           pm10,
		PM25:           pm25,
		CarbonMonoxide: co,
		StationLat:     testLat,
		StationLon:     testLon,
		RequestedLat:   testLat,
		RequestedLon:   testLon,
		DateRetrieved:  testRetrieved,
		City:           testCity,
	}
}

func TestDailyWeather(t *testing.T) {
	rows := []domain.WeatherReading{
		reading(testDay, 9, fptr(10), fptr(0.5), fptr(12)),
		reading(testDay, 12, fptr(15), nil, fptr(18)),
		reading(testDay, 15, fptr(20), fptr(1.5), nil),
	}

	out, err := DailyWeather(rows)
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, testDay, s.Date)
	assert.Equal(t, testCity, s.City)
	assert.Equal(t, geohash.EncodeWithPrecision(testLat, testLon, geohashPrecision), s.Geohash)
	assert.Equal(t, 10.0, *s.TempMin)
	assert.Equal(t, 20.0, *s.TempMax)
	assert.Equal(t, 15.0, *s.TempAvg)
	assert.Equal(t, 10.0, *s.TempRange)
	assert.Equal(t, 2.0, s.TotalPrecipitation)
	assert.Equal(t, 15.0, *s.AvgWindspeed)
	assert.Equal(t, testLat, s.Latitude)
	assert.Equal(t, testLon, s.Longitude)
	assert.Equal(t, testRetrieved, s.DateRetrieved)
}

func TestDailyWeather_Grouping(t *testing.T) {
	cordoba := reading(testDay, 9, fptr(28), nil, nil)
	cordoba.City = "cordoba"
	cordoba.StationLat, cordoba.StationLon = -31.4135, -64.181056

	nextDay := reading("2025-12-02", 9, fptr(11), nil, nil)

	rows := []domain.WeatherReading{
		reading(testDay, 9, fptr(10), nil, nil),
		cordoba,
		nextDay,
	}

	out, err := DailyWeather(rows)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// Sorted by date, then city, then geohash.
	assert.Equal(t, []string{testCity, "cordoba", testCity},
		[]string{out[0].City, out[1].City, out[2].City})
	assert.Equal(t, []string{testDay, testDay, "2025-12-02"},
		[]string{out[0].Date, out[1].Date, out[2].Date})
}

func TestDailyWeather_MissingMetrics(t *testing.T) {
	t.Run("a nil metric is excluded from that metric only", func(t *testing.T) {
		rows := []domain.WeatherReading{
			reading(testDay, 9, nil, nil, fptr(10)),
			reading(testDay, 12, fptr(22), nil, fptr(20)),
		}
		out, err := DailyWeather(rows)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, 22.0, *out[0].TempMin)
		assert.Equal(t, 22.0, *out[0].TempAvg)
		assert.Equal(t, 15.0, *out[0].AvgWindspeed)
	})

	t.Run("a metric with no contributions is nil, sums are zero", func(t *testing.T) {
		rows := []domain.WeatherReading{
			reading(testDay, 9, nil, nil, nil),
			reading(testDay, 12, nil, nil, nil),
		}
		out, err := DailyWeather(rows)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Nil(t, out[0].TempMin)
		assert.Nil(t, out[0].TempMax)
		assert.Nil(t, out[0].TempAvg)
		assert.Nil(t, out[0].TempRange)
		assert.Nil(t, out[0].AvgWindspeed)
		assert.Zero(t, out[0].TotalPrecipitation)
	})
}

func TestDailyWeather_CarrierSelection(t *testing.T) {
	t.Run("coordinates come from the earliest reading", func(t *testing.T) {
		late := reading(testDay, 12, fptr(20), nil, nil)
		early := reading(testDay, 9, fptr(10), nil, nil)
		early.StationLat += 0.0000001
		early.DateRetrieved = "2025-12-09"

		out, err := DailyWeather([]domain.WeatherReading{late, early})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, early.StationLat, out[0].Latitude)

		// date_retrieved is the group minimum, not the carrier's.
		assert.Equal(t, testRetrieved, out[0].DateRetrieved)
	})

	t.Run("time ties break by latitude", func(t *testing.T) {
		a := reading(testDay, 9, fptr(10), nil, nil)
		b := reading(testDay, 9, fptr(20), nil, nil)
		b.StationLat += 0.0000001

		out, err := DailyWeather([]domain.WeatherReading{b, a})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, a.StationLat, out[0].Latitude)
	})
}

func TestDailyWeather_DeterministicUnderPermutation(t *testing.T) {
	var rows []domain.WeatherReading
	for day := 1; day <= 3; day++ {
		date := time.Date(2025, 12, day, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout)
		for hour := 0; hour < 24; hour += 3 {
			rows = append(rows, reading(date, hour, fptr(float64(10+hour)), fptr(0.25), fptr(float64(hour))))
		}
	}

	want, err := DailyWeather(rows)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]domain.WeatherReading(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, err := DailyWeather(shuffled)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want, got))
	}
}

func TestDailyWeather_MalformedRows(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.WeatherReading)
		field  string
	}{
		{"zero time", func(r *domain.WeatherReading) { r.Time = 0 }, "time"},
		{"empty city", func(r *domain.WeatherReading) { r.City = "" }, "city"},
		{"empty date_retrieved", func(r *domain.WeatherReading) { r.DateRetrieved = "" }, "date_retrieved"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := []domain.WeatherReading{
				reading(testDay, 9, fptr(10), nil, nil),
				reading(testDay, 12, fptr(15), nil, nil),
			}
			tc.mutate(&rows[1])

			out, err := DailyWeather(rows)
			assert.Nil(t, out)

			var malformed *domain.MalformedRowError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 1, malformed.Index)
			assert.Equal(t, tc.field, malformed.Field)
		})
	}
}

func TestDailyAirQuality(t *testing.T) {
	rows := []domain.AirQualityReading{
		airReading(testDay, 9, fptr(30), fptr(15), fptr(200)),
		airReading(testDay, 12, fptr(50), fptr(25), nil),
	}

	out, err := DailyAirQuality(rows)
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, 30.0, *s.PM10Min)
	assert.Equal(t, 50.0, *s.PM10Max)
	assert.Equal(t, 40.0, *s.PM10Avg)
	assert.Equal(t, 20.0, *s.PM25Avg)
	assert.Equal(t, 200.0, *s.COMin)
	assert.Equal(t, 200.0, *s.COAvg)

	// pm2_5_avg of 20 maps to a simplified AQI of 80.
	require.NotNil(t, s.AQISimplified)
	assert.Equal(t, 80.0, *s.AQISimplified)
}

func TestDailyAirQuality_AQI(t *testing.T) {
	t.Run("caps at 100", func(t *testing.T) {
		rows := []domain.AirQualityReading{airReading(testDay, 9, nil, fptr(60), nil)}
		out, err := DailyAirQuality(rows)
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.NotNil(t, out[0].AQISimplified)
		assert.Equal(t, 100.0, *out[0].AQISimplified)
	})

	t.Run("nil when no pm2_5 contributed", func(t *testing.T) {
		rows := []domain.AirQualityReading{airReading(testDay, 9, fptr(30), nil, nil)}
		out, err := DailyAirQuality(rows)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Nil(t, out[0].AQISimplified)
		assert.Equal(t, 30.0, *out[0].PM10Avg)
	})
}

func TestDailyAirQuality_MalformedRow(t *testing.T) {
	rows := []domain.AirQualityReading{airReading(testDay, 9, fptr(30), fptr(15), nil)}
	rows[0].City = ""

	_, err := DailyAirQuality(rows)

	var malformed *domain.MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 0, malformed.Index)
	assert.Equal(t, "city", malformed.Field)
}

func TestStatsBounds(t *testing.T) {
	var s stats
	for _, v := range []float64{3.2, -1.5, 7.9, 0.4, 5.5} {
		s.add(fptr(v))
	}
	require.NotNil(t, s.min())
	assert.LessOrEqual(t, *s.min(), *s.avg())
	assert.LessOrEqual(t, *s.avg(), *s.max())
}
