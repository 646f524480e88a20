package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

func TestHourlyPatterns(t *testing.T) {
	rows := []domain.WeatherReading{
		reading("2025-12-01", 9, fptr(10), fptr(1), fptr(10)),
		reading("2025-12-02", 9, fptr(14), fptr(3), nil),
		reading("2025-12-02", 9, fptr(18), nil, fptr(20)),
		reading("2025-12-01", 15, fptr(24), nil, nil),
	}

	out, err := HourlyPatterns(rows)
	require.NoError(t, err)
	require.Len(t, out, 2)

	nine := out[0]
	assert.Equal(t, int32(9), nine.Hour)
	assert.Equal(t, testCity, nine.City)
	assert.Equal(t, 10.0, *nine.TempMin)
	assert.Equal(t, 18.0, *nine.TempMax)
	assert.Equal(t, 14.0, *nine.TempAvg)
	assert.Equal(t, 2.0, *nine.PrecipitationAvg)
	assert.Equal(t, 15.0, *nine.WindspeedAvg)
	assert.Equal(t, int64(2), nine.DaysCount)

	fifteen := out[1]
	assert.Equal(t, int32(15), fifteen.Hour)
	assert.Equal(t, int64(1), fifteen.DaysCount)
	assert.Nil(t, fifteen.PrecipitationAvg)
	assert.Nil(t, fifteen.WindspeedAvg)
}

func TestHourlyPatterns_SortedByHourThenCity(t *testing.T) {
	cordoba := reading(testDay, 9, fptr(20), nil, nil)
	cordoba.City = "cordoba"

	rows := []domain.WeatherReading{
		reading(testDay, 15, fptr(24), nil, nil),
		cordoba,
		reading(testDay, 9, fptr(10), nil, nil),
	}

	out, err := HourlyPatterns(rows)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int32(9), out[0].Hour)
	assert.Equal(t, testCity, out[0].City)
	assert.Equal(t, int32(9), out[1].Hour)
	assert.Equal(t, "cordoba", out[1].City)
	assert.Equal(t, int32(15), out[2].Hour)

	reversed := []domain.WeatherReading{rows[2], rows[1], rows[0]}
	again, err := HourlyPatterns(reversed)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(out, again))
}

func TestHourlyPatterns_MalformedRow(t *testing.T) {
	rows := []domain.WeatherReading{
		reading(testDay, 9, fptr(10), nil, nil),
		{City: testCity, DateRetrieved: testRetrieved},
	}

	_, err := HourlyPatterns(rows)

	var malformed *domain.MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 1, malformed.Index)
	assert.Equal(t, "time", malformed.Field)
}
