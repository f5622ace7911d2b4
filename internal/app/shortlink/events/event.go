package events

import "time"

const (
	TypeShortened  = "shortened"
	TypeRedirected = "redirected"
)

// LinkEvent is published after a successful shorten or redirect. Counters
// are set for shorten events only; a redirect does not read them back.
type LinkEvent struct {
	Type         string    `json:"type"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	ViewCount    int64     `json:"view_count,omitempty"`
	ShortenCount int64     `json:"shorten_count,omitempty"`
	At           time.Time `json:"at"`
}

// Collector accepts events without blocking the request path. Events that
// cannot be taken are dropped.
type Collector interface {
	Collect(event LinkEvent)
	Close()
}
