package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	insight := domain.ForecastInsight{
		Date:          "2025-12-09",
		City:          "buenos_aires",
		Geohash:       "69y7pkx",
		TempMin:       18,
		TempMax:       29,
		TempAvg:       23.5,
		AQISimplified: 62,
		HealthAlert:   domain.HealthAlertModerate,
		AllergyRisk:   domain.AllergyRiskLow,
		OutdoorScore:  69,
		DateRetrieved: "2025-12-08",
	}

	msg, err := serializeToMessage(insight)
	require.NoError(t, err)

	assert.Equal(t, []byte("buenos_aires|2025-12-09"), msg.Key)
	assert.Contains(t, string(msg.Value), `"health_alert":"MODERATE_ALERT"`)
	assert.Contains(t, string(msg.Value), `"outdoor_score":69`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "health_alert", msg.Headers[0].Key)
	assert.Equal(t, []byte(domain.HealthAlertModerate), msg.Headers[0].Value)
	assert.Equal(t, "date_retrieved", msg.Headers[1].Key)
	assert.Equal(t, []byte("2025-12-08"), msg.Headers[1].Value)
}

func TestSerializeToMessage_NilCO(t *testing.T) {
	insight := domain.ForecastInsight{
		Date:        "2025-12-09",
		City:        "cordoba",
		HealthAlert: domain.HealthAlertGood,
	}

	msg, err := serializeToMessage(insight)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"carbon_monoxide_avg":null`)
}

func TestPublish_EmptyIsNoOp(t *testing.T) {
	p := &Publisher{}
	require.NoError(t, p.Publish(context.Background(), nil))
}
