package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/geo"
	"github.com/drewfead/marquee/internal/match"
	"github.com/drewfead/marquee/internal/normalize"
	"github.com/drewfead/marquee/internal/reconcile"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	// ProjectConfigFile is looked up in the working directory when no path is given.
	ProjectConfigFile = "marquee.toml"

	envPrefix = "MARQUEE_"
)

var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Matching holds the fuzzy matcher thresholds.
type Matching struct {
	TheaterThreshold int `toml:"theater_threshold" validate:"min=0,max=100"`
	MovieThreshold   int `toml:"movie_threshold" validate:"min=0,max=100"`
	PrefixMinimum    int `toml:"prefix_minimum" validate:"min=0,max=100"`
}

// Geo holds the fallback coordinate and viewport padding.
type Geo struct {
	FallbackLat        float64 `toml:"fallback_lat" validate:"latitude"`
	FallbackLng        float64 `toml:"fallback_lng" validate:"longitude"`
	SinglePointPadding float64 `toml:"single_point_padding" validate:"gt=0,lte=1"`
	MultiPointPadding  float64 `toml:"multi_point_padding" validate:"gt=0,lte=1"`
}

type Display struct {
	TimeZone  string `toml:"time_zone" validate:"required,timezone"`
	ListLimit int    `toml:"list_limit" validate:"min=0"`
}

type Feeds struct {
	BaseURL         string `toml:"base_url" validate:"omitempty,url"`
	Dir             string `toml:"dir"`
	CacheEntries    int    `toml:"cache_entries" validate:"min=0"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds" validate:"min=0"`
}

type TMDB struct {
	APIKey   string `toml:"api_key"`
	Language string `toml:"language"`
}

// Affixes replaces the built-in chain affix tables when non-empty.
type Affixes struct {
	Suffixes []string `toml:"suffixes" validate:"dive,required"`
	Prefixes []string `toml:"prefixes" validate:"dive,required"`
}

type Logging struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	Matching Matching `toml:"matching"`
	Geo      Geo      `toml:"geo"`
	Display  Display  `toml:"display"`
	Feeds    Feeds    `toml:"feeds"`
	TMDB     TMDB     `toml:"tmdb"`
	Affixes  Affixes  `toml:"affixes"`
	Logging  Logging  `toml:"logging"`
}

func Default() Config {
	movie, theater := match.MovieOptions(), match.TheaterOptions()
	return Config{
		Matching: Matching{
			TheaterThreshold: theater.ContainmentThreshold,
			MovieThreshold:   movie.ContainmentThreshold,
			PrefixMinimum:    theater.PrefixMinimum,
		},
		Geo: Geo{
			FallbackLat:        geo.DefaultFallback.Lat,
			FallbackLng:        geo.DefaultFallback.Lng,
			SinglePointPadding: geo.DefaultSinglePointPadding,
			MultiPointPadding:  geo.DefaultMultiPointPadding,
		},
		Display: Display{
			TimeZone:  "Asia/Taipei",
			ListLimit: 9,
		},
		Feeds: Feeds{
			BaseURL:         "http://localhost:4000",
			CacheEntries:    64,
			CacheTTLSeconds: 300,
		},
		TMDB: TMDB{
			Language: "zh-TW",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads .env (when present) into the environment, then the TOML file at path, then applies
// MARQUEE_* overrides and validates. With an empty path, marquee.toml in the working directory is
// used when it exists; otherwise the defaults stand. An explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if resolved != "" {
		if err := cfg.decodeFile(resolved); err != nil {
			return nil, err
		}
		slog.Info("config: loaded", "path", resolved)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Environment variables are not
// consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return path, nil
	}
	if info, err := os.Stat(ProjectConfigFile); err == nil && !info.IsDir() {
		return ProjectConfigFile, nil
	}
	return "", nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	set(&c.TMDB.APIKey, envPrefix+"TMDB_API_KEY", "TMDB_API_KEY")
	set(&c.Feeds.BaseURL, envPrefix+"FEED_BASE_URL")
	set(&c.Feeds.Dir, envPrefix+"FEED_DIR")
	set(&c.Display.TimeZone, envPrefix+"TIME_ZONE")
	set(&c.Logging.Level, envPrefix+"LOG_LEVEL")
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: rule %q %s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// CreateSample writes the commented default configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func (c *Config) Fallback() internal.LatLng {
	return internal.LatLng{Lat: c.Geo.FallbackLat, Lng: c.Geo.FallbackLng}
}

// Location loads the display time zone. Validate has already checked the name.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Display.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time zone %q: %w", ErrInvalidConfig, c.Display.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Feeds.CacheTTLSeconds) * time.Second
}

// Normalizer builds the name normalizer, replacing each built-in affix table that is overridden.
func (c *Config) Normalizer() *normalize.Normalizer {
	if len(c.Affixes.Suffixes) == 0 && len(c.Affixes.Prefixes) == 0 {
		return normalize.Default()
	}
	affixes := normalize.DefaultAffixes()
	if len(c.Affixes.Suffixes) > 0 {
		affixes.Suffixes = c.Affixes.Suffixes
	}
	if len(c.Affixes.Prefixes) > 0 {
		affixes.Prefixes = c.Affixes.Prefixes
	}
	return normalize.New(affixes)
}

func (c *Config) MatchOptions() (theater, movie match.Options) {
	theater = match.TheaterOptions()
	theater.ContainmentThreshold = c.Matching.TheaterThreshold
	theater.PrefixMinimum = c.Matching.PrefixMinimum
	movie = match.MovieOptions()
	movie.ContainmentThreshold = c.Matching.MovieThreshold
	return theater, movie
}

// Reconcile builds the reconciler configuration.
func (c *Config) Reconcile() reconcile.Config {
	theater, movie := c.MatchOptions()
	return reconcile.Config{
		Normalizer: c.Normalizer(),
		Theater:    theater,
		Movie:      movie,
		Fallback:   c.Fallback(),
	}
}

func (c *Config) Ranker() *geo.Ranker {
	return geo.NewRanker(
		geo.WithFallback(c.Fallback()),
		geo.WithPadding(c.Geo.SinglePointPadding, c.Geo.MultiPointPadding),
	)
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
