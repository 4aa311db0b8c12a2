package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ledgerbot/internal/domain/position"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Compile-time check
var _ Provider = (*CachedProvider)(nil)

// CachedProvider is a read-through Redis cache in front of another
// provider. A short TTL keeps one refresh cycle from asking the provider
// twice for the same series; unavailable quotes are never cached.
type CachedProvider struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedProvider wraps inner with a Redis quote cache
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   logger.Get().With("component", "quote_cache"),
	}
}

// Quote returns the cached reference price or falls through to the inner
// provider. Cache failures degrade to direct lookups.
func (c *CachedProvider) Quote(ctx context.Context, key position.OptionKey) (decimal.Decimal, error) {
	cacheKey := c.cacheKey(key)

	cached, err := c.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		price, parseErr := decimal.NewFromString(cached)
		if parseErr == nil {
			return price, nil
		}
		c.log.Warnw("Dropping unparseable cached quote", "key", cacheKey, "value", cached)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warnw("Quote cache read failed", "key", cacheKey, "error", err)
	}

	price, err := c.inner.Quote(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.rdb.Set(ctx, cacheKey, price.String(), c.ttl).Err(); err != nil {
		c.log.Warnw("Quote cache write failed", "key", cacheKey, "error", err)
	}
	return price, nil
}

func (c *CachedProvider) cacheKey(key position.OptionKey) string {
	return fmt.Sprintf("quote:%s:%s:%s:%s",
		key.Ticker, key.Expiry.Format("2006-01-02"), key.Strike.String(), key.Right)
}
