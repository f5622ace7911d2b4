package shortlink

import "context"

// Link is the persisted mapping between a long URL and its short token.
// Both counters only ever grow.
type Link struct {
	LongURL      string
	Token        string
	ViewCount    int64
	ShortenCount int64
}

// Store owns link persistence and the concurrency control around it.
//
// Implementations report a missing link as ErrNotFound and a token already
// owned by a different URL as ErrTokenCollision. Any other error is treated
// as a store failure by the Service.
type Store interface {
	// Upsert inserts {longURL, token} with zero counters, or, when longURL
	// already exists, increments its shorten count and returns the existing
	// record untouched otherwise. It must be a single atomic operation.
	Upsert(ctx context.Context, longURL, token string) (Link, error)

	// Resolve returns the long URL for token and counts one view, atomically.
	Resolve(ctx context.Context, token string) (string, error)

	FindByURL(ctx context.Context, longURL string) (Link, error)
	FindByToken(ctx context.Context, token string) (Link, error)

	Ping(ctx context.Context) error
	Close() error
}
