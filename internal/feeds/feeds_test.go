package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taipeiCenter = internal.LatLng{Lat: 25.0330, Lng: 121.5654}

type countingFeed struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (f *countingFeed) Descriptor() string { return "counting" }

func (f *countingFeed) Fetch(_ context.Context, _ internal.FeedRequest) ([]byte, error) {
	f.calls.Add(1)
	return f.data, f.err
}

func TestUnit_Registry_GetFeed(t *testing.T) {
	inner := &countingFeed{data: []byte(`[]`)}
	var wrapped int
	mark := func(f internal.Feed) internal.Feed {
		wrapped++
		return f
	}
	reg := NewRegistry(WithFeed(internal.FeedCinemas, inner, mark, mark))

	f, err := reg.GetFeed(internal.FeedCinemas)
	require.NoError(t, err)
	assert.Equal(t, "counting", f.Descriptor())
	assert.Equal(t, 2, wrapped)

	_, err = reg.GetFeed(internal.FeedBoxOffice)
	require.ErrorIs(t, err, ErrFeedNotFound)
	assert.Contains(t, err.Error(), "box-office")
}

func TestUnit_Cached(t *testing.T) {
	inner := &countingFeed{data: []byte(`[{"id":"C1"}]`)}
	f := Cached(8, time.Minute)(inner)
	ctx := context.Background()
	today := internal.FeedRequest{Date: "2026-10-17"}

	for range 3 {
		data, err := f.Fetch(ctx, today)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"C1"}]`, string(data))
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err := f.Fetch(ctx, internal.FeedRequest{Date: "2026-10-18"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load(), "a different request misses the cache")
	assert.Equal(t, "counting", f.Descriptor())
}

func TestUnit_Cached_DoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingFeed{err: boom}
	f := Cached(8, time.Minute)(inner)

	for range 2 {
		_, err := f.Fetch(context.Background(), internal.FeedRequest{})
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestUnit_Cached_NilFeed(t *testing.T) {
	assert.Nil(t, Cached(8, time.Minute)(nil))
}

func TestUnit_API_URL(t *testing.T) {
	tests := []struct {
		name     string
		kind     internal.FeedKind
		req      internal.FeedRequest
		expected string
		err      error
	}{
		{name: "box office", kind: internal.FeedBoxOffice, expected: "https://api.test/api/boxoffice"},
		{name: "cinemas", kind: internal.FeedCinemas, req: internal.FeedRequest{Date: "2026-10-17"}, expected: "https://api.test/api/cinemas"},
		{name: "showtimes by movie", kind: internal.FeedShowtimes, req: internal.FeedRequest{MovieID: "101", Date: "2026-10-17"}, expected: "https://api.test/api/showtimes/movie/101?date=2026-10-17"},
		{name: "showtimes by movie without date", kind: internal.FeedShowtimes, req: internal.FeedRequest{MovieID: "沙丘"}, expected: "https://api.test/api/showtimes/movie/%E6%B2%99%E4%B8%98"},
		{name: "showtimes by date", kind: internal.FeedShowtimes, req: internal.FeedRequest{Date: "2026-10-17"}, expected: "https://api.test/api/showtimes/date/2026-10-17"},
		{name: "showtimes without date", kind: internal.FeedShowtimes, err: ErrMissingDate},
		{name: "unknown", kind: internal.FeedKind("posters"), err: ErrUnknownFeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := API(tt.kind, WithBaseURL("https://api.test/")).(*apiFeed)
			got, err := f.url(tt.req)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUnit_API_FetchGolden(t *testing.T) {
	server := MountGoldenTestServer(t, "api")

	f := API(internal.FeedShowtimes, WithBaseURL(server.URL), WithClient(server.Client()))
	data, err := f.Fetch(t.Context(), internal.FeedRequest{MovieID: "101", Date: "2026-10-17"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "美麗華大直影城")
	assert.Equal(t, "api:showtimes", f.Descriptor())
}

func TestUnit_API_FetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	f := API(internal.FeedBoxOffice, WithBaseURL(server.URL), WithClient(server.Client()))
	_, err := f.Fetch(t.Context(), internal.FeedRequest{})
	require.ErrorIs(t, err, errHTTPRequestFailed)
}

func TestUnit_API_PullGolden(t *testing.T) {
	server := MountGoldenTestServer(t, "api")
	dir := t.TempDir()

	f := API(internal.FeedCinemas, WithBaseURL(server.URL), WithClient(server.Client()))
	require.NoError(t, f.PullGolden(t.Context(), dir, internal.FeedRequest{}))

	pulled, err := os.ReadFile(filepath.Join(dir, "cinemas.json"))
	require.NoError(t, err)
	original, err := os.ReadFile(filepath.Join(goldenDir, "api", "cinemas.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(original), string(pulled))
}

func TestUnit_API_MountGoldenMissingFile(t *testing.T) {
	_, err := API(internal.FeedCinemas).MountGolden(t.Context(), t.TempDir())
	require.Error(t, err)
}

func TestUnit_File(t *testing.T) {
	f := File(internal.FeedBoxOffice, filepath.Join(goldenDir, "api"))
	data, err := f.Fetch(t.Context(), internal.FeedRequest{})
	require.NoError(t, err)
	assert.Contains(t, string(data), "沙丘")

	_, err = File(internal.FeedBoxOffice, t.TempDir()).Fetch(t.Context(), internal.FeedRequest{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnit_LoadSnapshot_Golden(t *testing.T) {
	server := MountGoldenTestServer(t, "api")
	opts := []APIOption{WithBaseURL(server.URL), WithClient(server.Client())}
	reg := NewRegistry(
		WithFeed(internal.FeedBoxOffice, API(internal.FeedBoxOffice, opts...)),
		WithFeed(internal.FeedShowtimes, API(internal.FeedShowtimes, opts...), Cached(8, time.Minute)),
		WithFeed(internal.FeedCinemas, API(internal.FeedCinemas, opts...)),
	)

	snap, err := LoadSnapshot(t.Context(), reg, internal.FeedRequest{Date: "2026-10-17"}, taipeiCenter)
	require.NoError(t, err)
	assert.Empty(t, snap.Pending())
	assert.Len(t, snap.BoxOffice, 3)
	assert.Len(t, snap.Showtimes, 5)
	require.Len(t, snap.Cinemas, 4)
	assert.True(t, snap.Cinemas[3].DefaultedLocation)
	assert.Equal(t, taipeiCenter, snap.Cinemas[3].Location())
}

func TestUnit_LoadSnapshot_MissingAndFailingFeeds(t *testing.T) {
	reg := NewRegistry(
		WithFeed(internal.FeedShowtimes, &countingFeed{err: errors.New("backend asleep")}),
		WithFeed(internal.FeedCinemas, &countingFeed{data: []byte(`[{"id": "C1", "name": "京站威秀影城"}]`)}),
	)

	snap, err := LoadSnapshot(t.Context(), reg, internal.FeedRequest{Date: "2026-10-17"}, taipeiCenter)
	require.NoError(t, err)
	assert.Nil(t, snap.BoxOffice)
	assert.Nil(t, snap.Showtimes)
	assert.Len(t, snap.Cinemas, 1)
	assert.Equal(t, []internal.FeedKind{internal.FeedBoxOffice, internal.FeedShowtimes}, snap.Pending())
}

func TestUnit_LoadSnapshot_MalformedFeedStaysPending(t *testing.T) {
	reg := NewRegistry(
		WithFeed(internal.FeedBoxOffice, &countingFeed{data: []byte(`{"oops": true}`)}),
		WithFeed(internal.FeedShowtimes, &countingFeed{data: []byte(`[]`)}),
		WithFeed(internal.FeedCinemas, &countingFeed{data: []byte(`[]`)}),
	)

	snap, err := LoadSnapshot(t.Context(), reg, internal.FeedRequest{Date: "2026-10-17"}, taipeiCenter)
	require.NoError(t, err)
	assert.Nil(t, snap.BoxOffice)
	assert.NotNil(t, snap.Showtimes, "an empty feed is loaded, not pending")
	assert.NotNil(t, snap.Cinemas)
}

func TestUnit_LoadSnapshot_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := NewRegistry(WithFeed(internal.FeedCinemas, File(internal.FeedCinemas, filepath.Join(goldenDir, "api"))))

	_, err := LoadSnapshot(ctx, reg, internal.FeedRequest{}, taipeiCenter)
	require.ErrorIs(t, err, context.Canceled)
}
