package feeds

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/require"
)

const goldenDir = "golden"

// goldenFeeds are pulled from MARQUEE_FEED_BASE_URL (or the local backend) when PREP=1.
var goldenFeeds = map[string][]internal.FeedKind{
	"api": {internal.FeedBoxOffice, internal.FeedShowtimes, internal.FeedCinemas},
}

func TestPrep_PullAllGolden(t *testing.T) {
	if os.Getenv("PREP") != "1" {
		t.Skip("PREP is not set")
	}

	req := internal.FeedRequest{Date: time.Now().Format(time.DateOnly)}
	for name, kinds := range goldenFeeds {
		for _, kind := range kinds {
			t.Run(name+"/"+string(kind), func(t *testing.T) {
				dir := filepath.Join(goldenDir, name)
				f := API(kind, WithBaseURL(os.Getenv("MARQUEE_FEED_BASE_URL")))
				err := f.PullGolden(t.Context(), dir, req)
				require.NoError(t, err, "PullGolden")
				t.Logf("wrote golden files to %s", dir)
			})
		}
	}
}

// MountGoldenTestServer serves every golden payload of name the way the backend would.
func MountGoldenTestServer(t *testing.T, name string) *httptest.Server {
	t.Helper()
	dir := filepath.Join(goldenDir, name)
	handler, err := MountAllGolden(t.Context(), dir, goldenFeeds[name]...)
	require.NoError(t, err, "MountAllGolden")
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}
