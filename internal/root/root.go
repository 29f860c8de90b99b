package root

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/config"
	"github.com/drewfead/marquee/internal/enrichment"
	"github.com/drewfead/marquee/internal/feeds"
	"github.com/drewfead/marquee/internal/httputil"
	"github.com/urfave/cli/v3"
)

const (
	formatDense = "dense"
	formatJSON  = "json"

	feedTimeout = 15 * time.Second
)

var ErrUnknownFormat = errors.New("unknown output format")

// syncWriter wraps an *os.File and calls Sync after each Write so output written to stdout
// appears immediately on Windows.
type syncWriter struct {
	f *os.File
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	n, err = w.f.Write(p)
	if err != nil {
		return n, err
	}
	_ = w.f.Sync()
	return n, nil
}

// RootOption configures the root command (e.g. for tests).
type RootOption func(*rootConfig)

type rootConfig struct {
	registry        feeds.Registry
	posterProviders []internal.PosterProvider
	now             func() time.Time
}

// WithRegistry sets the feed registry. Use in tests to inject a registry that uses golden HTTP
// servers or fakes instead of the configured backend.
func WithRegistry(registry feeds.Registry) RootOption {
	return func(c *rootConfig) {
		c.registry = registry
	}
}

// WithPosterProviders replaces the configured poster providers (TMDB when a key is set). With no
// providers, poster lookups are off.
func WithPosterProviders(providers ...internal.PosterProvider) RootOption {
	return func(c *rootConfig) {
		c.posterProviders = append([]internal.PosterProvider{}, providers...)
	}
}

// WithClock sets the wall clock used when --now is not given.
func WithClock(now func() time.Time) RootOption {
	return func(c *rootConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// app is the per-invocation state shared by the subcommands once the root Before hook has run.
type app struct {
	opts *rootConfig
	cfg  *config.Config
	loc  *time.Location
}

func Root(ctx context.Context, opts ...RootOption) (*cli.Command, error) {
	rc := &rootConfig{now: time.Now}
	for _, opt := range opts {
		opt(rc)
	}
	a := &app{opts: rc}

	rootCmd := &cli.Command{
		Name:  "marquee",
		Usage: "reconcile box-office, showtime and cinema feeds into one listing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a TOML config file (default: ./marquee.toml when present)",
				Sources: cli.EnvVars("MARQUEE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "write output to this file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "output format: dense or json",
				Value: formatDense,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides the config file)",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.reconcileCommand(),
			a.datesCommand(),
			a.matchCommand(),
			a.normalizeCommand(),
			a.configCommand(),
		},
	}
	return rootCmd, nil
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch f := cmd.String("format"); f {
	case formatDense, formatJSON:
	default:
		return ctx, fmt.Errorf("%w: %q (valid: dense, json)", ErrUnknownFormat, f)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
		if err := cfg.Validate(); err != nil {
			return ctx, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	loc, err := cfg.Location()
	if err != nil {
		return ctx, err
	}
	a.cfg, a.loc = cfg, loc
	return ctx, nil
}

// registry returns the injected registry, or builds one over the feed directory when set and the
// backend API otherwise.
func (a *app) registry(feedDir, baseURL string) feeds.Registry {
	if a.opts.registry != nil {
		return a.opts.registry
	}
	cached := feeds.Cached(a.cfg.Feeds.CacheEntries, a.cfg.CacheTTL())

	if feedDir == "" {
		feedDir = a.cfg.Feeds.Dir
	}
	if feedDir != "" {
		slog.Info("root: reading feeds from directory", "dir", feedDir)
		return feeds.NewRegistry(
			feeds.WithFeed(internal.FeedBoxOffice, feeds.File(internal.FeedBoxOffice, feedDir)),
			feeds.WithFeed(internal.FeedShowtimes, feeds.File(internal.FeedShowtimes, feedDir)),
			feeds.WithFeed(internal.FeedCinemas, feeds.File(internal.FeedCinemas, feedDir)),
		)
	}

	if baseURL == "" {
		baseURL = a.cfg.Feeds.BaseURL
	}
	client := &http.Client{
		Transport: &httputil.CacheTransport{
			Base:       http.DefaultTransport,
			MaxEntries: a.cfg.Feeds.CacheEntries,
			DefaultTTL: a.cfg.CacheTTL(),
		},
		Timeout: feedTimeout,
	}
	apiOpts := []feeds.APIOption{feeds.WithBaseURL(baseURL), feeds.WithClient(client)}
	slog.Info("root: reading feeds from backend", "base_url", baseURL)
	return feeds.NewRegistry(
		feeds.WithFeed(internal.FeedBoxOffice, feeds.API(internal.FeedBoxOffice, apiOpts...), cached),
		feeds.WithFeed(internal.FeedShowtimes, feeds.API(internal.FeedShowtimes, apiOpts...), cached),
		feeds.WithFeed(internal.FeedCinemas, feeds.API(internal.FeedCinemas, apiOpts...), cached),
	)
}

func (a *app) posterProviders() []internal.PosterProvider {
	if a.opts.posterProviders != nil {
		return a.opts.posterProviders
	}
	if a.cfg.TMDB.APIKey == "" {
		slog.Info("TMDB enrichment not configured", "reason", "no api_key")
		return nil
	}
	_, movie := a.cfg.MatchOptions()
	provider, err := enrichment.TMDB(a.cfg.TMDB.APIKey,
		enrichment.WithCache(a.cfg.Feeds.CacheEntries, a.cfg.CacheTTL()),
		enrichment.WithLanguage(a.cfg.TMDB.Language),
		enrichment.WithMatchOptions(movie),
		enrichment.WithNormalizer(a.cfg.Normalizer()),
	)
	if err != nil {
		slog.Info("TMDB enrichment not configured", "reason", "client init failed", "error", err)
		return nil
	}
	slog.Info("TMDB enrichment configured")
	return []internal.PosterProvider{provider}
}

// now resolves --now (RFC3339) or the clock, in the configured time zone.
func (a *app) now(cmd *cli.Command) (time.Time, error) {
	if raw := cmd.String("now"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --now (expected RFC3339): %w", err)
		}
		return t.In(a.loc), nil
	}
	return a.opts.now().In(a.loc), nil
}

// emit writes v to --output or stdout, as JSON or through dense.
func emit(cmd *cli.Command, v any, dense func(io.Writer) error) (err error) {
	w, closeFn, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	if cmd.String("format") == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return dense(w)
}

func openOutput(cmd *cli.Command) (io.Writer, func() error, error) {
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("create output file: %w", err)
		}
		return f, f.Close, nil
	}
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if f, ok := w.(*os.File); ok {
		w = &syncWriter{f: f}
	}
	return w, func() error { return nil }, nil
}
