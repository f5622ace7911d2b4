package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaTail reads link events from the topic and writes them to out as JSON
// lines.
type KafkaTail struct {
	reader *kafka.Reader
	out    io.Writer

	// retryDelay is the pause after a failed read.
	retryDelay time.Duration
}

func NewKafkaTail(brokers []string, topic, groupID string, out io.Writer) *KafkaTail {
	return &KafkaTail{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		out:        out,
		retryDelay: time.Second,
	}
}

// Run blocks until ctx is done. Undecodable messages are logged and skipped.
func (t *KafkaTail) Run(ctx context.Context) error {
	for {
		msg, err := t.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			slog.Error("kafka read failed", "err", err, "retry_in", t.retryDelay)
			if !sleepCtx(ctx, t.retryDelay) {
				return nil
			}
			continue
		}
		if err := writeLine(t.out, msg.Value); err != nil {
			slog.Error("skip link event", "err", err, "offset", msg.Offset, "partition", msg.Partition)
		}
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (t *KafkaTail) Close() error {
	return t.reader.Close()
}

// writeLine validates value as a LinkEvent and re-encodes it compactly.
func writeLine(w io.Writer, value []byte) error {
	var event LinkEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode link event: %w", err)
	}
	if event.Type == "" || event.Token == "" {
		return fmt.Errorf("decode link event: missing type or token")
	}
	return json.NewEncoder(w).Encode(event)
}
