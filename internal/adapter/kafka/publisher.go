// Package kafka publishes scored forecast insights to the downstream topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/config"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// Publisher produces gold forecast insights to a Kafka topic.
// It implements pipeline.InsightPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured insights topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		BatchSize:    cfg.KafkaBatchSize,
		Compression:  kafkago.Snappy,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and produces the insights in a single WriteMessages
// call. An empty slice is a no-op.
func (p *Publisher) Publish(ctx context.Context, insights []domain.ForecastInsight) error {
	if len(insights) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(insights))
	for i := range insights {
		msg, err := serializeToMessage(insights[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write insights: %w", err)
	}
	p.logger.Info("published insights", "count", len(insights))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ForecastInsight into a Kafka message. The
// key is city plus date so rewrites of the same forecast day land on the
// same partition.
func serializeToMessage(insight domain.ForecastInsight) (kafkago.Message, error) {
	data, err := json.Marshal(insight)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize insight: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(insight.City + "|" + insight.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "health_alert", Value: []byte(insight.HealthAlert)},
			{Key: "date_retrieved", Value: []byte(insight.DateRetrieved)},
		},
	}, nil
}
