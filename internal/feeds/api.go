package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/drewfead/marquee/internal"
)

const DefaultBaseURL = "http://localhost:4000"

const (
	boxOfficePath      = "/api/boxoffice"
	cinemasPath        = "/api/cinemas"
	movieShowtimesPath = "/api/showtimes/movie/"
	dateShowtimesPath  = "/api/showtimes/date/"
)

var (
	errHTTPRequestFailed = errors.New("http request failed")
	ErrUnknownFeed       = errors.New("unknown feed kind")
	ErrMissingDate       = errors.New("showtimes request needs a movie id or a date")
)

type apiFeed struct {
	kind       internal.FeedKind
	baseURL    string
	httpClient *http.Client
}

// APIOption applies configuration to a backend API feed.
type APIOption func(*apiFeed)

// WithBaseURL sets the backend root (e.g. httptest.Server.URL in tests).
func WithBaseURL(baseURL string) APIOption {
	return func(f *apiFeed) {
		if baseURL != "" {
			f.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithClient sets the HTTP client (e.g. one with a caching transport, or httptest.Server.Client()).
func WithClient(client *http.Client) APIOption {
	return func(f *apiFeed) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// API returns the backend feed for kind. Box office and cinemas ignore the request; showtimes are
// fetched per movie (with an optional date) or, without a movie, for a whole date.
func API(kind internal.FeedKind, opts ...APIOption) internal.GoldenFeed {
	f := &apiFeed{
		kind:       kind,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *apiFeed) Descriptor() string {
	return "api:" + string(f.kind)
}

func (f *apiFeed) Fetch(ctx context.Context, req internal.FeedRequest) ([]byte, error) {
	target, err := f.url(req)
	if err != nil {
		return nil, err
	}
	slog.Debug("feeds: fetch", "feed", f.Descriptor(), "url", target)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", f.kind, err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", errHTTPRequestFailed, f.kind, resp.Status)
	}
	return body, nil
}

func (f *apiFeed) url(req internal.FeedRequest) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", f.baseURL, err)
	}
	switch f.kind {
	case internal.FeedBoxOffice:
		u.Path = boxOfficePath
	case internal.FeedCinemas:
		u.Path = cinemasPath
	case internal.FeedShowtimes:
		switch {
		case req.MovieID != "":
			u.Path = movieShowtimesPath + req.MovieID
			u.RawPath = movieShowtimesPath + url.PathEscape(req.MovieID)
			if req.Date != "" {
				u.RawQuery = url.Values{"date": {req.Date}}.Encode()
			}
		case req.Date != "":
			u.Path = dateShowtimesPath + req.Date
			u.RawPath = dateShowtimesPath + url.PathEscape(req.Date)
		default:
			return "", ErrMissingDate
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFeed, f.kind)
	}
	return u.String(), nil
}

// PullGolden fetches the feed once and saves the payload under its kind.
func (f *apiFeed) PullGolden(ctx context.Context, goldenDir string, req internal.FeedRequest) error {
	data, err := f.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch golden data: %w", err)
	}
	return writeGoldenFiles(goldenDir, map[string][]byte{
		string(f.kind): data,
	})
}

// MountGolden serves the saved payload on every path the feed can request.
func (f *apiFeed) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	payload, err := os.ReadFile(goldenPath(goldenDir, string(f.kind)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s golden file: %w", f.kind, err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet && f.serves(r.URL.Path) {
			_, _ = w.Write(payload)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}), nil
}

func (f *apiFeed) serves(path string) bool {
	switch f.kind {
	case internal.FeedBoxOffice:
		return path == boxOfficePath
	case internal.FeedCinemas:
		return path == cinemasPath
	case internal.FeedShowtimes:
		return strings.HasPrefix(path, movieShowtimesPath) || strings.HasPrefix(path, dateShowtimesPath)
	}
	return false
}

// MountAllGolden serves every feed's golden payload from one handler, as the backend would.
func MountAllGolden(ctx context.Context, goldenDir string, kinds ...internal.FeedKind) (http.Handler, error) {
	mux := http.NewServeMux()
	for _, kind := range kinds {
		f := &apiFeed{kind: kind}
		h, err := f.MountGolden(ctx, goldenDir)
		if err != nil {
			return nil, err
		}
		switch kind {
		case internal.FeedBoxOffice:
			mux.Handle(boxOfficePath, h)
		case internal.FeedCinemas:
			mux.Handle(cinemasPath, h)
		case internal.FeedShowtimes:
			mux.Handle(movieShowtimesPath, h)
			mux.Handle(dateShowtimesPath, h)
		}
	}
	return mux, nil
}
