package feeds

import (
	"context"
	"errors"
	"log/slog"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/adapter"
	"github.com/drewfead/marquee/internal/services"
	"golang.org/x/sync/errgroup"
)

// LoadSnapshot fetches and decodes the three feeds concurrently. A feed that is not registered,
// fails to fetch, or fails to decode is left nil in the snapshot, which the reconciler reports as
// pending. Only cancellation of ctx is returned as an error.
//
// req.Date also serves as the date of flat showtime lists that carry none of their own, and
// fallback is the coordinate given to directory rows without one.
func LoadSnapshot(ctx context.Context, registry Registry, req internal.FeedRequest, fallback internal.LatLng) (services.Snapshot, error) {
	var snap services.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	load := func(kind internal.FeedKind, decode func([]byte) error) {
		g.Go(func() error {
			data, err := fetch(gctx, registry, kind, req)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, ErrFeedNotFound) {
					slog.Debug("feeds: not configured", "feed", kind)
				} else {
					slog.Warn("feeds: fetch failed", "feed", kind, "error", err)
				}
				return nil
			}
			if err := decode(data); err != nil {
				slog.Warn("feeds: decode failed", "feed", kind, "error", err)
			}
			return nil
		})
	}

	load(internal.FeedBoxOffice, func(data []byte) error {
		entries, err := adapter.DecodeBoxOffice(data)
		if err == nil {
			snap.BoxOffice = entries
		}
		return err
	})
	load(internal.FeedShowtimes, func(data []byte) error {
		blocks, err := adapter.DecodeTheaterBlocks(data, req.Date)
		if err == nil {
			snap.Showtimes = blocks
		}
		return err
	})
	load(internal.FeedCinemas, func(data []byte) error {
		cinemas, err := adapter.DecodeCinemas(data, fallback)
		if err == nil {
			snap.Cinemas = cinemas
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return services.Snapshot{}, err
	}
	slog.Debug("feeds: snapshot loaded",
		"box_office", len(snap.BoxOffice),
		"blocks", len(snap.Showtimes),
		"cinemas", len(snap.Cinemas),
		"pending", snap.Pending(),
	)
	return snap, nil
}

func fetch(ctx context.Context, registry Registry, kind internal.FeedKind, req internal.FeedRequest) ([]byte, error) {
	feed, err := registry.GetFeed(kind)
	if err != nil {
		return nil, err
	}
	return feed.Fetch(ctx, req)
}
