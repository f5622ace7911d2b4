package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"shortl.local/internal/platform/metrics"
)

// KafkaCollector publishes events as JSON, keyed by token so every event of
// one link lands on the same partition.
type KafkaCollector struct {
	writer *kafka.Writer
}

func NewKafkaCollector(brokers []string, topic string) *KafkaCollector {
	return &KafkaCollector{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					metrics.LinkEventsDropped.Add(float64(len(messages)))
					slog.Error("kafka write failed", "err", err, "count", len(messages))
				}
			},
		},
	}
}

func (k *KafkaCollector) Collect(event LinkEvent) {
	msg, err := encodeMessage(event)
	if err != nil {
		metrics.LinkEventsDropped.Inc()
		slog.Error("encode link event failed", "err", err)
		return
	}
	// Async writer: this only enqueues.
	if err := k.writer.WriteMessages(context.Background(), msg); err != nil {
		metrics.LinkEventsDropped.Inc()
		slog.Error("kafka write failed", "err", err)
	}
}

func (k *KafkaCollector) Close() {
	if err := k.writer.Close(); err != nil {
		slog.Error("kafka writer close failed", "err", err)
	}
}

func encodeMessage(event LinkEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(event.Token), Value: data}, nil
}
