package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/adapter"
	"github.com/drewfead/marquee/internal/httputil"
	"github.com/drewfead/marquee/internal/match"
	"github.com/drewfead/marquee/internal/normalize"
)

const defaultLanguage = "zh-TW"

type tmdbPosters struct {
	client     *tmdb.Client
	cache      *httputil.CacheTransport
	normalizer *normalize.Normalizer
	match      match.Options
	language   string

	base         http.RoundTripper
	cacheEntries int
	cacheTTL     time.Duration
}

// TMDBOption applies configuration to the TMDB poster provider.
type TMDBOption func(*tmdbPosters)

// WithTransport sets the transport under the response cache (e.g. one that points at a test server).
func WithTransport(rt http.RoundTripper) TMDBOption {
	return func(p *tmdbPosters) {
		if rt != nil {
			p.base = rt
		}
	}
}

// WithCache sizes the response cache. ttl applies to responses without their own max-age.
func WithCache(maxEntries int, ttl time.Duration) TMDBOption {
	return func(p *tmdbPosters) {
		p.cacheEntries = maxEntries
		p.cacheTTL = ttl
	}
}

// WithMatchOptions sets how strictly a search result title must match the movie.
func WithMatchOptions(opts match.Options) TMDBOption {
	return func(p *tmdbPosters) {
		p.match = opts
	}
}

func WithNormalizer(n *normalize.Normalizer) TMDBOption {
	return func(p *tmdbPosters) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithLanguage sets the TMDB response language (default zh-TW).
func WithLanguage(lang string) TMDBOption {
	return func(p *tmdbPosters) {
		if lang != "" {
			p.language = lang
		}
	}
}

// TMDB returns a PosterProvider backed by The Movie Database. A known TMDB id is looked up
// directly; otherwise the foreign, localized and full titles are searched in that order and a
// result is only taken when its title matches under the movie threshold.
func TMDB(apiKey string, opts ...TMDBOption) (internal.PosterProvider, error) {
	client, err := tmdb.InitV4(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	p := &tmdbPosters{
		client:     client,
		normalizer: normalize.Default(),
		match:      match.MovieOptions(),
		language:   defaultLanguage,
		base:       http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = &httputil.CacheTransport{
		Base:       p.base,
		MaxEntries: p.cacheEntries,
		DefaultTTL: p.cacheTTL,
	}
	client.SetClientConfig(http.Client{
		Transport: p.cache,
		Timeout:   10 * time.Second,
	})
	return p, nil
}

func (p *tmdbPosters) Poster(ctx context.Context, movie internal.Movie) (string, error) {
	if movie.TMDBID > 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		details, err := p.client.GetMovieDetails(int(movie.TMDBID), map[string]string{"language": p.language})
		if err != nil {
			return "", fmt.Errorf("failed to get movie details for tmdb id %d: %w", movie.TMDBID, err)
		}
		if details.PosterPath != "" {
			return adapter.PosterURL("", details.PosterPath), nil
		}
		slog.Debug("enrichment: tmdb details without poster", "tmdb_id", movie.TMDBID)
	}

	for _, query := range searchQueries(movie) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		results, err := p.client.GetSearchMovies(query, map[string]string{"language": p.language})
		if err != nil {
			return "", fmt.Errorf("failed to search for movie with title %s: %w", query, err)
		}
		if results == nil || results.SearchMoviesResults == nil {
			continue
		}
		if best := p.pickBestResult(query, results.Results); best != nil {
			slog.Debug("enrichment: tmdb match", "query", query, "tmdb_id", best.ID, "title", best.Title)
			return adapter.PosterURL("", best.PosterPath), nil
		}
	}
	return "", nil
}

// searchQueries lists the distinct non-empty titles to search for, foreign title first.
func searchQueries(movie internal.Movie) []string {
	var out []string
	for _, q := range []string{movie.ForeignTitle, movie.LocalizedTitle, movie.FullTitle} {
		if q == "" || slices.Contains(out, q) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// pickBestResult returns the result with a poster whose title or original title scores best
// against query, or nil when none matches. Equal scores keep TMDB's ranking.
func (p *tmdbPosters) pickBestResult(query string, results []tmdb.MovieResult) *tmdb.MovieResult {
	want := p.normalizer.Name(query)
	var best *tmdb.MovieResult
	bestResult := internal.MatchResult{Reason: internal.MatchReasonNone}
	for i := range results {
		r := match.ScoreKeys(
			[]string{want},
			[]string{p.normalizer.Name(results[i].Title), p.normalizer.Name(results[i].OriginalTitle)},
			p.match,
		)
		if !r.Matched || results[i].PosterPath == "" || !match.Better(r, bestResult) {
			continue
		}
		best, bestResult = &results[i], r
	}
	return best
}
