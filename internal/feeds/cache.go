package feeds

import (
	"context"
	"log/slog"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const defaultCacheEntries = 64

// Cached returns middleware that keeps a feed's payloads in an LRU with a TTL. Concurrent fetches
// of the same request share one upstream call.
//
//	feeds.NewRegistry(feeds.WithFeed(internal.FeedCinemas, feeds.API(internal.FeedCinemas), feeds.Cached(64, 5*time.Minute)))
//
// maxEntries is the LRU size; ttl is how long entries stay valid (zero = no expiration).
func Cached(maxEntries int, ttl time.Duration) FeedMiddleware {
	return func(inner internal.Feed) internal.Feed {
		if inner == nil {
			return nil
		}
		if maxEntries <= 0 {
			maxEntries = defaultCacheEntries
		}
		return &cachingFeed{
			descriptor: inner.Descriptor(),
			inner:      inner,
			cache:      expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
		}
	}
}

type cachingFeed struct {
	descriptor string
	inner      internal.Feed
	cache      *expirable.LRU[string, []byte]
	group      singleflight.Group
}

func cacheKey(descriptor string, req internal.FeedRequest) string {
	return descriptor + "|" + req.MovieID + "|" + req.Date
}

func (c *cachingFeed) Descriptor() string {
	return c.descriptor
}

func (c *cachingFeed) Fetch(ctx context.Context, req internal.FeedRequest) ([]byte, error) {
	key := cacheKey(c.descriptor, req)
	if data, ok := c.cache.Get(key); ok {
		slog.Debug("feeds: cache hit", "feed", c.descriptor, "movie_id", req.MovieID, "date", req.Date)
		return data, nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		data, err := c.inner.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("feeds: shared in-flight fetch", "feed", c.descriptor)
	}
	return v.([]byte), nil
}
