package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortl.local/internal/app/shortlink"
)

const (
	pgUniqueViolation = "23505"

	// Named in migrations/0001_create_links.sql.
	pgTokenConstraint = "links_short_token_key"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, longURL, token string) (shortlink.Link, error) {
	var l shortlink.Link
	err := s.db.QueryRow(ctx, `
INSERT INTO links (long_url, short_token) VALUES ($1, $2)
ON CONFLICT (long_url) DO UPDATE SET shorten_count = links.shorten_count + 1
RETURNING long_url, short_token, view_count, shorten_count`,
		longURL, token,
	).Scan(&l.LongURL, &l.Token, &l.ViewCount, &l.ShortenCount)
	if err != nil {
		// ON CONFLICT (long_url) absorbs the URL conflict, so the only
		// unique violation left is the token one. Check the name anyway.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == pgTokenConstraint {
			return shortlink.Link{}, shortlink.ErrTokenCollision
		}
		return shortlink.Link{}, err
	}
	return l, nil
}

// Resolve locks the row, bumps view_count and commits. The connection goes
// back to the pool on every path.
func (s *PostgresStore) Resolve(ctx context.Context, token string) (string, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer rollback(ctx, tx)

	var id int64
	var longURL string
	if err := tx.QueryRow(ctx, `SELECT id, long_url FROM links WHERE short_token = $1 FOR UPDATE`, token).
		Scan(&id, &longURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shortlink.ErrNotFound
		}
		return "", err
	}
	if _, err := tx.Exec(ctx, `UPDATE links SET view_count = view_count + 1 WHERE id = $1`, id); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return longURL, nil
}

func (s *PostgresStore) FindByURL(ctx context.Context, longURL string) (shortlink.Link, error) {
	return s.findOne(ctx, `SELECT long_url, short_token, view_count, shorten_count FROM links WHERE long_url = $1`, longURL)
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (shortlink.Link, error) {
	return s.findOne(ctx, `SELECT long_url, short_token, view_count, shorten_count FROM links WHERE short_token = $1`, token)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (shortlink.Link, error) {
	var l shortlink.Link
	if err := s.db.QueryRow(ctx, query, arg).Scan(&l.LongURL, &l.Token, &l.ViewCount, &l.ShortenCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shortlink.Link{}, shortlink.ErrNotFound
		}
		return shortlink.Link{}, err
	}
	return l, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// rollback is deferred after Begin. After a successful Commit it is a no-op;
// otherwise a failure is logged and swallowed so the caller's error stands.
func rollback(ctx context.Context, tx pgx.Tx) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := tx.Rollback(rctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Error("link store: rollback failed", "err", err)
	}
}
