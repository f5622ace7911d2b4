package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"shortl.local/internal/app/shortlink"
)

// runStoreContract exercises the behaviour every Store must share. newStore
// returns an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) shortlink.Store) {
	t.Run("upsert creates with zero counters", func(t *testing.T) {
		s := newStore(t)
		l, err := s.Upsert(context.Background(), "https://example.com/a", "abcDEF")
		require.NoError(t, err)
		require.Equal(t, shortlink.Link{LongURL: "https://example.com/a", Token: "abcDEF"}, l)
	})

	t.Run("upsert existing url keeps token and counts", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Upsert(ctx, "https://example.com/a", "abcDEF")
		require.NoError(t, err)

		l, err := s.Upsert(ctx, "https://example.com/a", "zzzZZZ")
		require.NoError(t, err)
		require.Equal(t, "abcDEF", l.Token)
		require.EqualValues(t, 1, l.ShortenCount)

		l, err = s.Upsert(ctx, "https://example.com/a", "yyyYYY")
		require.NoError(t, err)
		require.EqualValues(t, 2, l.ShortenCount)

		_, err = s.FindByToken(ctx, "zzzZZZ")
		require.ErrorIs(t, err, shortlink.ErrNotFound, "no second token may be minted")
	})

	t.Run("token owned by another url collides", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Upsert(ctx, "https://example.com/a", "abcDEF")
		require.NoError(t, err)

		_, err = s.Upsert(ctx, "https://example.com/b", "abcDEF")
		require.ErrorIs(t, err, shortlink.ErrTokenCollision)

		_, err = s.FindByURL(ctx, "https://example.com/b")
		require.ErrorIs(t, err, shortlink.ErrNotFound)

		l, err := s.FindByToken(ctx, "abcDEF")
		require.NoError(t, err)
		require.Equal(t, "https://example.com/a", l.LongURL)
		require.Zero(t, l.ShortenCount)
	})

	t.Run("resolve counts views", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Upsert(ctx, "https://example.com/a", "abcDEF")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			target, err := s.Resolve(ctx, "abcDEF")
			require.NoError(t, err)
			require.Equal(t, "https://example.com/a", target)
		}

		l, err := s.FindByURL(ctx, "https://example.com/a")
		require.NoError(t, err)
		require.EqualValues(t, 3, l.ViewCount)
		require.Zero(t, l.ShortenCount)
	})

	t.Run("resolve unknown token", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Upsert(ctx, "https://example.com/a", "abcDEF")
		require.NoError(t, err)

		_, err = s.Resolve(ctx, "nopeXX")
		require.ErrorIs(t, err, shortlink.ErrNotFound)

		l, err := s.FindByToken(ctx, "abcDEF")
		require.NoError(t, err)
		require.Zero(t, l.ViewCount)
	})

	t.Run("find missing", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.FindByURL(ctx, "https://missing.example")
		require.ErrorIs(t, err, shortlink.ErrNotFound)
		_, err = s.FindByToken(ctx, "missin")
		require.ErrorIs(t, err, shortlink.ErrNotFound)
	})

	t.Run("concurrent resolves are all counted", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Upsert(ctx, "https://example.com/hot", "hotHOT")
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Resolve(ctx, "hotHOT"); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		l, err := s.FindByToken(ctx, "hotHOT")
		require.NoError(t, err)
		require.EqualValues(t, n, l.ViewCount)
	})

	t.Run("concurrent shorten of one url mints one token", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		const n = 10
		tokens := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				l, err := s.Upsert(ctx, "https://example.com/race", "tok"+string(rune('a'+i))+"AA")
				if err != nil {
					t.Error(err)
					return
				}
				tokens[i] = l.Token
			}(i)
		}
		wg.Wait()

		for _, tok := range tokens[1:] {
			require.Equal(t, tokens[0], tok)
		}
		l, err := s.FindByURL(ctx, "https://example.com/race")
		require.NoError(t, err)
		require.EqualValues(t, n-1, l.ShortenCount)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(context.Background()))
	})
}
