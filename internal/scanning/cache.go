package scanning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL keeps results for the length of a typical batch run
const DefaultCacheTTL = time.Hour

// CachingBackend deduplicates analyses of byte-identical images within a run.
// Concurrent requests for the same image share one backend call; only successes are cached.
type CachingBackend struct {
	next  Backend
	cache *cache.Cache
	group singleflight.Group
}

// NewCachingBackend wraps next with a content-addressed result cache
func NewCachingBackend(next Backend, ttl time.Duration) *CachingBackend {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingBackend{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

// Analyze returns a cached result for identical bytes or delegates to the wrapped backend
func (c *CachingBackend) Analyze(ctx context.Context, imageData []byte, contentType string) (*AnalyzeResult, error) {
	sum := sha256.Sum256(imageData)
	key := hex.EncodeToString(sum[:])

	if cached, found := c.cache.Get(key); found {
		if result, ok := cached.(*AnalyzeResult); ok {
			slog.Debug("Analysis cache hit", "sha256", key)
			return result, nil
		}
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		result, err := c.next.Analyze(ctx, imageData, contentType)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, result, cache.DefaultExpiration)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Analysis shared with concurrent request", "sha256", key)
	}
	return v.(*AnalyzeResult), nil
}

// Close closes the wrapped backend
func (c *CachingBackend) Close() error {
	c.cache.Flush()
	return c.next.Close()
}
