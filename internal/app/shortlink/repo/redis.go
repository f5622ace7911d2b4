package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"shortl.local/internal/app/shortlink"
)

// Key layout:
//
//	<prefix>url:<long url> -> token
//	<prefix>tok:<token>    -> hash {long_url, view_count, shorten_count}
const DefaultRedisPrefix = "sl:"

// upsertScript returns {1, token, views, shortens} for an existing URL,
// {2} when the candidate token is taken, {0, token, "0", "0"} on insert.
var upsertScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
  local tk = ARGV[3] .. existing
  local sc = redis.call('HINCRBY', tk, 'shorten_count', 1)
  local vc = redis.call('HGET', tk, 'view_count') or '0'
  return {1, existing, vc, tostring(sc)}
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return {2}
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('HSET', KEYS[2], 'long_url', ARGV[1], 'view_count', 0, 'shorten_count', 0)
return {0, ARGV[2], '0', '0'}
`)

// resolveScript returns the long URL and counts the view, or nil.
var resolveScript = redis.NewScript(`
local url = redis.call('HGET', KEYS[1], 'long_url')
if not url then
  return false
end
redis.call('HINCRBY', KEYS[1], 'view_count', 1)
return url
`)

const upsertCollision = 2

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) urlKey(longURL string) string { return s.prefix + "url:" + longURL }
func (s *RedisStore) tokKey(token string) string   { return s.prefix + "tok:" + token }

func (s *RedisStore) Upsert(ctx context.Context, longURL, token string) (shortlink.Link, error) {
	res, err := upsertScript.Run(ctx, s.rdb,
		[]string{s.urlKey(longURL), s.tokKey(token)},
		longURL, token, s.prefix+"tok:",
	).Slice()
	if err != nil {
		return shortlink.Link{}, err
	}
	if len(res) == 0 {
		return shortlink.Link{}, errors.New("redis upsert: empty reply")
	}
	status, _ := res[0].(int64)
	if status == upsertCollision {
		return shortlink.Link{}, shortlink.ErrTokenCollision
	}
	if len(res) != 4 {
		return shortlink.Link{}, fmt.Errorf("redis upsert: unexpected reply %v", res)
	}

	l := shortlink.Link{LongURL: longURL}
	l.Token, _ = res[1].(string)
	if l.ViewCount, err = parseCount(res[2]); err != nil {
		return shortlink.Link{}, err
	}
	if l.ShortenCount, err = parseCount(res[3]); err != nil {
		return shortlink.Link{}, err
	}
	return l, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (string, error) {
	longURL, err := resolveScript.Run(ctx, s.rdb, []string{s.tokKey(token)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shortlink.ErrNotFound
		}
		return "", err
	}
	return longURL, nil
}

func (s *RedisStore) FindByURL(ctx context.Context, longURL string) (shortlink.Link, error) {
	token, err := s.rdb.Get(ctx, s.urlKey(longURL)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shortlink.Link{}, shortlink.ErrNotFound
		}
		return shortlink.Link{}, err
	}
	return s.FindByToken(ctx, token)
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (shortlink.Link, error) {
	vals, err := s.rdb.HMGet(ctx, s.tokKey(token), "long_url", "view_count", "shorten_count").Result()
	if err != nil {
		return shortlink.Link{}, err
	}
	if vals[0] == nil {
		return shortlink.Link{}, shortlink.ErrNotFound
	}

	l := shortlink.Link{Token: token}
	l.LongURL, _ = vals[0].(string)
	if l.ViewCount, err = parseCount(vals[1]); err != nil {
		return shortlink.Link{}, err
	}
	if l.ShortenCount, err = parseCount(vals[2]); err != nil {
		return shortlink.Link{}, err
	}
	return l, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func parseCount(v any) (int64, error) {
	switch c := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return c, nil
	case string:
		n, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("redis: bad counter %q: %w", c, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("redis: unexpected counter type %T", v)
	}
}
