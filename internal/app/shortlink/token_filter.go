package shortlink

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// TokenFilter is a bloom filter over tokens this process has issued or seen
// collide. A false answer is definite; a true answer may be a false positive.
type TokenFilter struct {
	filter *bloom.BloomFilter
	mu     sync.RWMutex
}

// NewTokenFilter sizes the filter for expectedItems tokens at the given
// false positive rate (0.01 is a sensible default).
func NewTokenFilter(expectedItems uint, falsePositiveRate float64) *TokenFilter {
	return &TokenFilter{
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
	}
}

func (f *TokenFilter) Add(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(token)
}

func (f *TokenFilter) MightExist(token string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(token)
}

// Count estimates how many distinct tokens were added.
func (f *TokenFilter) Count() uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.ApproximatedSize()
}
