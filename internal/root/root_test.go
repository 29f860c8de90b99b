package root

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/feeds"
	"github.com/drewfead/marquee/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFeed struct {
	name string
	data string
}

func (f staticFeed) Descriptor() string { return "static:" + f.name }

func (f staticFeed) Fetch(_ context.Context, _ internal.FeedRequest) ([]byte, error) {
	return []byte(f.data), nil
}

// run executes the root command in an empty directory and returns what it wrote to --output, if
// anything.
func run(t *testing.T, opts []RootOption, args ...string) ([]byte, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd, err := Root(t.Context(), opts...)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out")
	if err := cmd.Run(t.Context(), append([]string{"marquee", "--output", out}, args...)); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(out)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	require.NoError(t, err)
	return data, nil
}

func TestUnit_Dates(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 12, 31, 9, 0, 0, 0, time.UTC) }
	out, err := run(t, []RootOption{WithClock(clock)}, "--format", "json", "dates")
	require.NoError(t, err)

	var tabs []internal.DateTab
	require.NoError(t, json.Unmarshal(out, &tabs))
	assert.Equal(t, []internal.DateTab{
		{Label: "今天 (12/31)", Date: "2026-12-31"},
		{Label: "明天 (1/1)", Date: "2027-01-01"},
		{Label: "後天 (1/2)", Date: "2027-01-02"},
	}, tabs)
}

func TestUnit_Dates_NowFlagUsesConfiguredZone(t *testing.T) {
	out, err := run(t, nil, "dates", "--now", "2026-10-17T17:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, string(out), "今天 (10/18)", "17:00 UTC is already the next day in Taipei")
}

func TestUnit_Match(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		matched bool
		reason  internal.MatchReason
	}{
		{
			name:    "theater branch against brand",
			args:    []string{"--kind", "theater", "美麗華大直影城", "美麗華影城"},
			matched: true,
			reason:  internal.MatchReasonPartialPrefix,
		},
		{
			name:    "movie exact after folding",
			args:    []string{"Amélie", "AMELIE"},
			matched: true,
			reason:  internal.MatchReasonExact,
		},
		{
			name:    "movie mismatch",
			args:    []string{"沙丘", "會計師2"},
			matched: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, nil, append([]string{"--format", "json", "match"}, tt.args...)...)
			require.NoError(t, err)

			var got matchOutput
			require.NoError(t, json.Unmarshal(out, &got))
			assert.Equal(t, tt.matched, got.Result.Matched)
			if tt.matched {
				assert.Equal(t, tt.reason, got.Result.Reason)
			}
		})
	}
}

func TestUnit_Match_Errors(t *testing.T) {
	_, err := run(t, nil, "match", "only-one")
	require.Error(t, err)

	_, err = run(t, nil, "match", "--kind", "popcorn", "a", "b")
	require.ErrorContains(t, err, "invalid --kind")
}

func TestUnit_Normalize(t *testing.T) {
	out, err := run(t, nil, "--format", "json", "normalize", "國賓影城@台北長春廣場", "Ａｍéｌｉｅ")
	require.NoError(t, err)

	var got []normalizeOutput
	require.NoError(t, json.Unmarshal(out, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "amelie", got[1].Name)
	assert.NotEmpty(t, got[0].TheaterKeys)
	assert.Equal(t, got[0].Theater, got[0].TheaterKeys[0])
}

func TestUnit_UnknownFormat(t *testing.T) {
	_, err := run(t, nil, "--format", "yaml", "dates")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestUnit_Reconcile_PendingFeeds(t *testing.T) {
	registry := feeds.NewRegistry(
		feeds.WithFeed(internal.FeedCinemas, staticFeed{name: "cinemas", data: `[{"id": "C1", "name": "京站威秀影城"}]`}),
	)
	out, err := run(t, []RootOption{WithRegistry(registry), WithPosterProviders()},
		"--format", "json", "reconcile", "--now", "2026-10-17T20:00:00+08:00")
	require.NoError(t, err)

	var view services.View
	require.NoError(t, json.Unmarshal(out, &view))
	assert.False(t, view.Ready)
	assert.Equal(t, []internal.FeedKind{internal.FeedBoxOffice, internal.FeedShowtimes}, view.Pending)

	dense := renderView(view)
	assert.Equal(t, "waiting for feeds: box-office, showtimes\n", dense)
}

func TestUnit_Reconcile_FlagErrors(t *testing.T) {
	registry := feeds.NewRegistry()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "date out of range", args: []string{"--date", "3"}, want: "invalid --date"},
		{name: "bad now", args: []string{"--now", "yesterday"}, want: "invalid --now"},
		{name: "bad origin", args: []string{"--origin", "25.0"}, want: "invalid --origin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, []RootOption{WithRegistry(registry)}, append([]string{"reconcile"}, tt.args...)...)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestUnit_Reconcile_FeedDir(t *testing.T) {
	dir, err := filepath.Abs(filepath.Join("..", "feeds", "golden", "api"))
	require.NoError(t, err)

	out, err := run(t, []RootOption{WithPosterProviders()},
		"--format", "json", "reconcile", "--now", "2026-10-17T20:00:00+08:00", "--feed-dir", dir, "--query", "光點")
	require.NoError(t, err)

	var view services.View
	require.NoError(t, json.Unmarshal(out, &view))
	require.True(t, view.Ready)
	require.Len(t, view.Cinemas, 1)
	assert.Equal(t, "C4", view.Cinemas[0].ID)
	assert.Equal(t, 1, view.Total)
}

func TestUnit_ParseOrigin(t *testing.T) {
	tests := []struct {
		raw     string
		want    *internal.LatLng
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "25.0330,121.5654", want: &internal.LatLng{Lat: 25.0330, Lng: 121.5654}},
		{raw: " 25.0330 , 121.5654 ", want: &internal.LatLng{Lat: 25.0330, Lng: 121.5654}},
		{raw: "25.0330", wantErr: true},
		{raw: "north,121.5", wantErr: true},
		{raw: "95,121.5", wantErr: true},
		{raw: "NaN,NaN", wantErr: true},
		{raw: "25.0,nan", wantErr: true},
		{raw: "inf,121.5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseOrigin(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnit_TabLine(t *testing.T) {
	tabs := []internal.DateTab{
		{Label: "今天 (10/17)", Date: "2026-10-17"},
		{Label: "明天 (10/18)", Date: "2026-10-18"},
		{Label: "後天 (10/19)", Date: "2026-10-19"},
	}
	assert.Equal(t, "今天 (10/17)  [明天 (10/18)]  後天 (10/19)", tabLine(tabs, "2026-10-18"))
	assert.Equal(t, "今天 (10/17)  明天 (10/18)  後天 (10/19)", tabLine(tabs, ""))
}

func TestUnit_ConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marquee.toml")

	_, err := run(t, nil, "config", "init", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[matching]")

	_, err = run(t, nil, "config", "init", path)
	require.ErrorContains(t, err, "already exists")

	_, err = run(t, nil, "config", "init", "--force", path)
	require.NoError(t, err)
}
