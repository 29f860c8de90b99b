package enrichment

import (
	"context"
	"log/slog"

	"github.com/drewfead/marquee/internal"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentLookups = 4

// Enrich returns a copy of entries with missing posters filled in. For each entry the providers
// are asked in order and the first non-empty answer wins. Provider failures are logged and count
// as no answer; only cancellation of ctx is returned.
func Enrich(ctx context.Context, entries []internal.BoxOfficeEntry, providers ...internal.PosterProvider) ([]internal.BoxOfficeEntry, error) {
	out := make([]internal.BoxOfficeEntry, len(entries))
	copy(out, entries)
	if len(providers) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i := range out {
		if out[i].PosterURL != "" {
			continue
		}
		g.Go(func() error {
			for j, provider := range providers {
				if err := gctx.Err(); err != nil {
					return err
				}
				url, err := provider.Poster(gctx, out[i].Movie)
				if err != nil {
					slog.Warn("enrichment: poster lookup failed",
						"movie_id", out[i].Movie.ID,
						"title", out[i].Movie.DisplayTitle(),
						"provider_index", j,
						"error", err,
					)
					continue
				}
				if url != "" {
					out[i].PosterURL = url
					slog.Debug("enrichment: poster found", "movie_id", out[i].Movie.ID, "provider_index", j)
					return nil
				}
			}
			slog.Debug("enrichment: no poster", "movie_id", out[i].Movie.ID, "title", out[i].Movie.DisplayTitle())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
