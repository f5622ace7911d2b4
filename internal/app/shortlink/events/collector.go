package events

import (
	"sync"

	"shortl.local/internal/platform/metrics"
)

// ChannelCollector buffers events in memory for a Consumer.
type ChannelCollector struct {
	mu     sync.RWMutex
	ch     chan LinkEvent
	closed bool
}

func NewChannelCollector(bufferSize int) *ChannelCollector {
	return &ChannelCollector{
		ch: make(chan LinkEvent, bufferSize),
	}
}

func (c *ChannelCollector) Collect(event LinkEvent) {
	// The read lock keeps Close from closing ch under a pending send.
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		metrics.LinkEventsDropped.Inc()
		return
	}
	select {
	case c.ch <- event:
	default:
		metrics.LinkEventsDropped.Inc()
	}
}

func (c *ChannelCollector) Events() <-chan LinkEvent {
	return c.ch
}

func (c *ChannelCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
