package transport

import (
	"context"
	"fmt"

	"feedsync/internal/models"
	"feedsync/internal/providers"

	"github.com/goccy/go-json"
)

type pageFetcher[T models.Item] interface {
	FetchPage(ctx context.Context, req models.PageRequest) (models.Page[T], error)
}

// CachingFetcher keeps the latest head page of a feed in the response cache.
// Only head requests are served from it, and a Fresh request always goes to
// the server and refreshes the entry.
type CachingFetcher[T models.Item] struct {
	next   pageFetcher[T]
	cache  providers.CacheProviderInterface
	prefix string
	logger providers.Logger
}

func NewCachingFetcher[T models.Item](name string, next pageFetcher[T], cache providers.CacheProviderInterface, logger providers.Logger) *CachingFetcher[T] {
	return &CachingFetcher[T]{
		next:   next,
		cache:  cache,
		prefix: providers.CacheKeyPrefix + name,
		logger: logger,
	}
}

func (f *CachingFetcher[T]) FetchPage(ctx context.Context, req models.PageRequest) (models.Page[T], error) {
	head := req.MaxID == "" && req.MinID == ""
	key := fmt.Sprintf("%s:%d", f.prefix, req.Limit)

	if head && !req.Fresh {
		if raw, ok := f.cache.Get(key); ok {
			var page models.Page[T]
			err := json.Unmarshal(raw, &page)
			if err == nil {
				return page, nil
			}
			f.logger.Warnf(providers.TypeFeed, "discarding cached page %s: %s", key, err)
		}
	}

	page, err := f.next.FetchPage(ctx, req)
	if err != nil {
		return page, err
	}
	if head {
		if raw, err := json.Marshal(page); err == nil {
			f.cache.Set(key, raw)
		}
	}
	return page, nil
}
