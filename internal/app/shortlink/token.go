package shortlink

import (
	"math/rand/v2"
	"sync"
)

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	DefaultTokenLength = 6
	MaxTokenLength     = 32

	// maxRedraws bounds how often Generate draws again when the filter says
	// a candidate is probably taken.
	maxRedraws = 4
)

// TokenGenerator produces random tokens from [A-Za-z].
//
// The zero source uses the runtime-seeded global generator, which is safe
// for concurrent use. An injected *rand.Rand is guarded by mu.
type TokenGenerator struct {
	length int
	filter *TokenFilter

	mu  sync.Mutex
	rnd *rand.Rand
}

type GeneratorOption func(*TokenGenerator)

// WithRand makes the generator draw from r. Tests use a seeded PCG source.
func WithRand(r *rand.Rand) GeneratorOption {
	return func(g *TokenGenerator) { g.rnd = r }
}

// WithFilter lets the generator skip tokens this process has already seen.
func WithFilter(f *TokenFilter) GeneratorOption {
	return func(g *TokenGenerator) { g.filter = f }
}

func NewTokenGenerator(length int, opts ...GeneratorOption) *TokenGenerator {
	if length <= 0 {
		length = DefaultTokenLength
	}
	if length > MaxTokenLength {
		length = MaxTokenLength
	}
	g := &TokenGenerator{length: length}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *TokenGenerator) Length() int {
	return g.length
}

// Generate returns a new candidate token. The store still decides whether
// it is unique; the filter only makes a collision less likely.
func (g *TokenGenerator) Generate() string {
	tok := g.draw()
	for i := 0; i < maxRedraws && g.filter != nil && g.filter.MightExist(tok); i++ {
		tok = g.draw()
	}
	return tok
}

// Remember records a token known to be taken.
func (g *TokenGenerator) Remember(token string) {
	if g.filter != nil {
		g.filter.Add(token)
	}
}

func (g *TokenGenerator) draw() string {
	buf := make([]byte, g.length)
	if g.rnd == nil {
		for i := range buf {
			buf[i] = tokenAlphabet[rand.IntN(len(tokenAlphabet))]
		}
		return string(buf)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range buf {
		buf[i] = tokenAlphabet[g.rnd.IntN(len(tokenAlphabet))]
	}
	return string(buf)
}
