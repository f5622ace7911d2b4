package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"shortl.local/internal/app/shortlink"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS links (
	short_token   TEXT    PRIMARY KEY,
	long_url      TEXT    NOT NULL UNIQUE,
	view_count    INTEGER NOT NULL DEFAULT 0,
	shorten_count INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type linkRow struct {
	LongURL      string `db:"long_url"`
	Token        string `db:"short_token"`
	ViewCount    int64  `db:"view_count"`
	ShortenCount int64  `db:"shorten_count"`
}

func (r linkRow) link() shortlink.Link {
	return shortlink.Link{
		LongURL:      r.LongURL,
		Token:        r.Token,
		ViewCount:    r.ViewCount,
		ShortenCount: r.ShortenCount,
	}
}

// SQLiteStore keeps links in a single SQLite file (or ":memory:").
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens path and creates the schema. SQLite serialises writers,
// so the pool is held to one connection; this also keeps ":memory:"
// databases alive for the life of the store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, longURL, token string) (shortlink.Link, error) {
	var row linkRow
	err := s.db.GetContext(ctx, &row, `
INSERT INTO links (long_url, short_token) VALUES (?, ?)
ON CONFLICT (long_url) DO UPDATE SET shorten_count = shorten_count + 1
RETURNING long_url, short_token, view_count, shorten_count`,
		longURL, token)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return shortlink.Link{}, shortlink.ErrTokenCollision
		}
		return shortlink.Link{}, err
	}
	return row.link(), nil
}

func (s *SQLiteStore) Resolve(ctx context.Context, token string) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("link store: rollback failed", "err", err)
		}
	}()

	var longURL string
	if err := tx.GetContext(ctx, &longURL,
		`UPDATE links SET view_count = view_count + 1 WHERE short_token = ? RETURNING long_url`, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", shortlink.ErrNotFound
		}
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return longURL, nil
}

func (s *SQLiteStore) FindByURL(ctx context.Context, longURL string) (shortlink.Link, error) {
	return s.findOne(ctx, `SELECT long_url, short_token, view_count, shorten_count FROM links WHERE long_url = ?`, longURL)
}

func (s *SQLiteStore) FindByToken(ctx context.Context, token string) (shortlink.Link, error) {
	return s.findOne(ctx, `SELECT long_url, short_token, view_count, shorten_count FROM links WHERE short_token = ?`, token)
}

func (s *SQLiteStore) findOne(ctx context.Context, query string, arg string) (shortlink.Link, error) {
	var row linkRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shortlink.Link{}, shortlink.ErrNotFound
		}
		return shortlink.Link{}, err
	}
	return row.link(), nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
