package spa

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"shortl.local/internal/platform/metrics"
)

// FileCache keeps frontend file contents in memory, costed by size.
type FileCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewFileCache bounds the cache to maxBytes of file content. Entries expire
// after ttl so edits under the static dir are eventually picked up.
func NewFileCache(maxBytes int64, ttl time.Duration) (*FileCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		// Roughly ten counters per expected entry, assuming ~4KB files.
		NumCounters:        max(maxBytes/4096*10, 1000),
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &FileCache{cache: cache, ttl: ttl}, nil
}

func (c *FileCache) Get(path string) ([]byte, bool) {
	if v, ok := c.cache.Get(path); ok {
		metrics.StaticCacheOps.WithLabelValues("hit").Inc()
		return v.([]byte), true
	}
	metrics.StaticCacheOps.WithLabelValues("miss").Inc()
	return nil, false
}

// Set is asynchronous; a value may not be visible to Get right away, and
// ristretto may refuse it under pressure.
func (c *FileCache) Set(path string, data []byte) {
	c.cache.SetWithTTL(path, data, int64(len(data)), c.ttl)
}

// Wait blocks until pending Sets are applied.
func (c *FileCache) Wait() {
	c.cache.Wait()
}

func (c *FileCache) Close() {
	c.cache.Close()
}
