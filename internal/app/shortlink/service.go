package shortlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shortl.local/internal/platform/metrics"
)

const (
	DefaultMaxAttempts  = 3
	DefaultStoreTimeout = 3 * time.Second

	tracerName = "shortl.local/internal/app/shortlink"
)

type Options struct {
	// MaxAttempts is how many tokens Shorten tries before giving up with
	// ErrTokenCollision. 1 disables retries.
	MaxAttempts int
	// Timeout bounds the store work of a single operation.
	Timeout time.Duration
}

// Service runs the shorten, redirect and stats use cases on top of a Store.
// It holds no link state of its own.
type Service struct {
	store       Store
	tokens      *TokenGenerator
	maxAttempts int
	timeout     time.Duration
	tracer      trace.Tracer
}

func NewService(store Store, tokens *TokenGenerator, opts Options) *Service {
	if tokens == nil {
		tokens = NewTokenGenerator(DefaultTokenLength)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStoreTimeout
	}
	return &Service{
		store:       store,
		tokens:      tokens,
		maxAttempts: opts.MaxAttempts,
		timeout:     opts.Timeout,
		tracer:      otel.Tracer(tracerName),
	}
}

// Shorten returns the link for longURL, creating it on first use. Repeated
// calls for the same URL return the same token and bump ShortenCount.
func (s *Service) Shorten(ctx context.Context, longURL string) (Link, error) {
	ctx, span := s.tracer.Start(ctx, "shortlink.Shorten")
	defer span.End()

	if !IsValidURL(longURL) {
		metrics.LinksShortened.WithLabelValues("invalid_url").Inc()
		span.SetStatus(codes.Error, ErrInvalidURL.Error())
		return Link{}, ErrInvalidURL
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		token := s.tokens.Generate()
		link, err := s.store.Upsert(ctx, longURL, token)
		switch {
		case err == nil:
			s.tokens.Remember(link.Token)
			result := "created"
			if link.ShortenCount > 0 {
				result = "existing"
			}
			metrics.LinksShortened.WithLabelValues(result).Inc()
			span.SetAttributes(
				attribute.String("shortlink.token", link.Token),
				attribute.String("shortlink.result", result),
				attribute.Int("shortlink.attempts", attempt),
			)
			return link, nil

		case errors.Is(err, ErrTokenCollision):
			metrics.TokenCollisions.Inc()
			s.tokens.Remember(token)
			slog.Warn("short token collision", "attempt", attempt, "max_attempts", s.maxAttempts)
			if attempt >= s.maxAttempts {
				metrics.LinksShortened.WithLabelValues("collision").Inc()
				span.SetStatus(codes.Error, ErrTokenCollision.Error())
				return Link{}, ErrTokenCollision
			}

		default:
			metrics.LinksShortened.WithLabelValues("error").Inc()
			return Link{}, s.storeFailure(span, "shorten", err)
		}
	}
}

// ResolveRedirect returns the target for token and counts the view. The
// lookup and the increment happen in one store operation, so a view is
// counted exactly when a target is returned.
func (s *Service) ResolveRedirect(ctx context.Context, token string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "shortlink.ResolveRedirect",
		trace.WithAttributes(attribute.String("shortlink.token", token)))
	defer span.End()

	if !IsPlausibleToken(token) {
		metrics.Redirects.WithLabelValues("not_found").Inc()
		return "", ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	longURL, err := s.store.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.Redirects.WithLabelValues("not_found").Inc()
			return "", ErrNotFound
		}
		metrics.Redirects.WithLabelValues("error").Inc()
		return "", s.storeFailure(span, "resolve", err)
	}
	metrics.Redirects.WithLabelValues("found").Inc()
	return longURL, nil
}

// GetStats looks a link up by longURL or, when longURL is empty, by token.
// longURL wins when both are given. Counters are not touched.
func (s *Service) GetStats(ctx context.Context, longURL, token string) (Link, error) {
	ctx, span := s.tracer.Start(ctx, "shortlink.GetStats")
	defer span.End()

	if longURL == "" && token == "" {
		return Link{}, ErrBadRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		link Link
		err  error
	)
	if longURL != "" {
		span.SetAttributes(attribute.String("shortlink.lookup", "url"))
		link, err = s.store.FindByURL(ctx, longURL)
	} else {
		span.SetAttributes(attribute.String("shortlink.lookup", "token"))
		if !IsPlausibleToken(token) {
			return Link{}, ErrNotFound
		}
		link, err = s.store.FindByToken(ctx, token)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Link{}, ErrNotFound
		}
		return Link{}, s.storeFailure(span, "stats", err)
	}
	return link, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) storeFailure(span trace.Span, op string, err error) error {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	slog.Error("link store failure", "op", op, "err", err)
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
