package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/config"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes detections to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured detections topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// LoadBatch publishes all detections in a single WriteMessages call.
// The topic carries no duplicate check, so every message counts as written.
func (w *Writer) LoadBatch(ctx context.Context, detections []domain.Detection) (domain.LoadStats, error) {
	if len(detections) == 0 {
		return domain.LoadStats{}, nil
	}
	msgs := make([]kafkago.Message, len(detections))
	for i := range detections {
		msg, err := serializeToMessage(detections[i])
		if err != nil {
			return domain.LoadStats{}, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return domain.LoadStats{}, fmt.Errorf("publish detections: %w", err)
	}
	w.logger.Debug("detections published", "count", len(msgs))
	return domain.LoadStats{Written: len(msgs)}, nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Detection into a Kafka message keyed by its
// duplicate key, so repeats of the same pixel land on the same partition.
func serializeToMessage(d domain.Detection) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize detection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "file_datetime", Value: []byte(d.FileDatetime.Format(time.RFC3339))},
			{Key: "source_file", Value: []byte(d.SourceFile)},
		},
	}, nil
}
