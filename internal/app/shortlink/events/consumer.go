package events

import (
	"context"
	"log/slog"
	"time"
)

// Consumer drains a ChannelCollector in batches of up to batchSize, or
// whatever arrived within interval, and hands each batch to flush.
type Consumer struct {
	collector *ChannelCollector
	batchSize int
	interval  time.Duration
	flush     func([]LinkEvent)
}

type ConsumerOption func(*Consumer)

func WithBatch(size int, interval time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if size > 0 {
			c.batchSize = size
		}
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithFlush replaces the default sink, which writes the batch to the log.
func WithFlush(flush func([]LinkEvent)) ConsumerOption {
	return func(c *Consumer) { c.flush = flush }
}

func NewConsumer(collector *ChannelCollector, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		collector: collector,
		batchSize: 100,
		interval:  time.Second,
		flush:     logBatch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run blocks until ctx is done or the collector is closed, flushing what is
// left before returning.
func (c *Consumer) Run(ctx context.Context) {
	batch := make([]LinkEvent, 0, c.batchSize)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	emit := func() {
		if len(batch) == 0 {
			return
		}
		c.flush(batch)
		// flush must not keep the slice; it is reused.
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			emit()
			return
		case event, ok := <-c.collector.Events():
			if !ok {
				emit()
				return
			}
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				emit()
			}
		case <-ticker.C:
			emit()
		}
	}
}

func logBatch(batch []LinkEvent) {
	var shortened, redirected int
	for _, e := range batch {
		switch e.Type {
		case TypeShortened:
			shortened++
		case TypeRedirected:
			redirected++
		}
		slog.Debug("link event", "type", e.Type, "token", e.Token, "url", e.URL)
	}
	slog.Info("link events", "count", len(batch), "shortened", shortened, "redirected", redirected)
}
