package providers

import (
	"strings"

	"feedsync/internal/structures"
)

const (
	// CacheKeyPrefix starts every page cache key: page:<feed>:<limit>.
	CacheKeyPrefix = "page:"
	otherLabel     = "other"
)

// MetricsCacheProvider counts page cache hits and misses per feed.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	feed := feedOfKey(key)
	if ok {
		c.metrics.IncCacheHits(feed)
	} else {
		c.metrics.IncCacheMisses(feed)
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

// feedOfKey extracts the feed name from a page cache key.
func feedOfKey(key string) string {
	rest, ok := strings.CutPrefix(key, CacheKeyPrefix)
	if !ok {
		return otherLabel
	}
	feed, _, _ := strings.Cut(rest, ":")
	if feed == "" {
		return otherLabel
	}
	return feed
}

// NewInstrumentedCacheProvider returns the plain noop cache when caching is
// disabled so no phantom misses are counted.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if !conf.Cache.Enabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}
