package feeds

import (
	"errors"
	"fmt"

	"github.com/drewfead/marquee/internal"
)

type Registry interface {
	GetFeed(kind internal.FeedKind) (internal.Feed, error)
}

type FeedMiddleware func(internal.Feed) internal.Feed

type RegistryOption func(r *registry)

func NewRegistry(opts ...RegistryOption) Registry {
	r := &registry{
		feeds: make(map[internal.FeedKind]internal.Feed),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithFeed registers feed for kind, wrapped by middleware in order (the last one is outermost).
func WithFeed(kind internal.FeedKind, feed internal.Feed, middleware ...FeedMiddleware) RegistryOption {
	return func(r *registry) {
		for _, m := range middleware {
			feed = m(feed)
		}
		if feed != nil {
			r.feeds[kind] = feed
		}
	}
}

type registry struct {
	feeds map[internal.FeedKind]internal.Feed
}

var ErrFeedNotFound = errors.New("feed not found")

func (r *registry) GetFeed(kind internal.FeedKind) (internal.Feed, error) {
	feed, ok := r.feeds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, kind)
	}
	return feed, nil
}
