package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Cache persists suggestions by key. A found entry with a nil suggestion is
// a cached miss.
type Cache interface {
	GetSuggestion(ctx context.Context, key string) (s *Suggestion, found bool, err error)
	SetSuggestion(ctx context.Context, key string, s *Suggestion) error
}

// CacheKey returns SHA-256 hex of the normalized pattern for cache lookup.
func CacheKey(pattern string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(pattern))))
	return fmt.Sprintf("%x", h)
}

type cachedClient struct {
	next  Client
	cache Cache
}

// WithCache wraps next with a read-through cache. Cache failures are logged
// and never fail a lookup.
func WithCache(next Client, cache Cache) Client {
	if cache == nil {
		return next
	}
	return &cachedClient{next: next, cache: cache}
}

func (c *cachedClient) Suggest(ctx context.Context, pattern string) (*Suggestion, error) {
	key := CacheKey(pattern)

	s, found, err := c.cache.GetSuggestion(ctx, key)
	switch {
	case err != nil:
		zap.L().Warn("geocode: cache read failed", zap.String("pattern", pattern), zap.Error(err))
	case found:
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", s != nil))
		return s, nil
	}

	s, err = c.next.Suggest(ctx, pattern)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetSuggestion(ctx, key, s); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return s, nil
}
