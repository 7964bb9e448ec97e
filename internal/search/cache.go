package search

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CachedSearcher memoizes successful searches and rate-limits the misses
// that reach the wrapped Searcher.
type CachedSearcher struct {
	next    Searcher
	cache   *cache.Cache
	limiter *rate.Limiter
}

// NewCached wraps next. A non-positive ttl defaults to one hour and a
// non-positive rps disables limiting.
func NewCached(next Searcher, ttl time.Duration, rps float64) *CachedSearcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(int(rps), 1)
	}
	return &CachedSearcher{
		next:    next,
		cache:   cache.New(ttl, 2*ttl),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Search implements Searcher. Empty and failed results are not cached.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	key := cacheKey(query)
	if x, found := c.cache.Get(key); found {
		zap.L().Debug("search: cache hit", zap.String("query", query))
		return append([]Result(nil), x.([]Result)...), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limit wait")
	}

	results, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		c.cache.Set(key, append([]Result(nil), results...), cache.DefaultExpiration)
	}
	return results, nil
}

// Len reports the number of cached queries.
func (c *CachedSearcher) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
