package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// SourceHeader identifies this producer on every message.
const SourceHeader = "puma-wage-map"

// Writer publishes aggregated area wages to a Kafka topic.
// It implements pipeline.WageLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// WageMessage is the JSON value of each published message.
type WageMessage struct {
	GEOID         string    `json:"geoid"`
	AvgHourlyWage float64   `json:"avg_hourly_wage"`
	ComputedAt    time.Time `json:"computed_at"`
}

// NewWriter creates a Kafka producer for the wage topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: false,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadWages serializes every area wage and publishes them in a single
// WriteMessages call. Messages are keyed by GEOID so reruns compact per area.
func (w *Writer) LoadWages(ctx context.Context, result domain.AggregateResult) error {
	if len(result.Wages) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(result.Wages))
	for i := range result.Wages {
		msg, err := serializeToMessage(result.Wages[i], result.ComputedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish wages to %s: %w", w.writer.Topic, err)
	}
	w.logger.Info("wages published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an AreaWage into a Kafka message.
func serializeToMessage(aw domain.AreaWage, computedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(WageMessage{
		GEOID:         aw.GEOID,
		AvgHourlyWage: aw.AvgHourlyWage,
		ComputedAt:    computedAt.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize area wage %s: %w", aw.GEOID, err)
	}
	return kafkago.Message{
		Key:   []byte(aw.GEOID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(SourceHeader)},
			{Key: "computed_at", Value: []byte(computedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
