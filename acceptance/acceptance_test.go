package acceptance

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/feeds"
	"github.com/drewfead/marquee/internal/root"
	"github.com/drewfead/marquee/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFeeds = []internal.FeedKind{internal.FeedBoxOffice, internal.FeedShowtimes, internal.FeedCinemas}

func goldenRegistry(t *testing.T) feeds.Registry {
	t.Helper()
	goldenDir := filepath.Join("..", "internal", "feeds", "golden", "api")
	handler, err := feeds.MountAllGolden(t.Context(), goldenDir, allFeeds...)
	require.NoError(t, err, "MountAllGolden")
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := []feeds.APIOption{feeds.WithBaseURL(server.URL), feeds.WithClient(server.Client())}
	var registryOpts []feeds.RegistryOption
	for _, kind := range allFeeds {
		registryOpts = append(registryOpts, feeds.WithFeed(kind, feeds.API(kind, opts...)))
	}
	return feeds.NewRegistry(registryOpts...)
}

func runMarquee(t *testing.T, args ...string) []byte {
	t.Helper()
	registry := goldenRegistry(t)
	// No marquee.toml or .env from the working tree.
	t.Chdir(t.TempDir())

	rootCmd, err := root.Root(t.Context(), root.WithRegistry(registry), root.WithPosterProviders())
	require.NoError(t, err, "Root")
	require.NotNil(t, rootCmd, "Root")

	outputFile := filepath.Join(t.TempDir(), "output")
	err = rootCmd.Run(t.Context(), append([]string{"marquee", "--output", outputFile}, args...))
	require.NoError(t, err, "Run")

	outputBytes, err := os.ReadFile(outputFile)
	require.NoError(t, err, "ReadFile")
	require.NotEmpty(t, outputBytes, "output file should contain the reconciled listing")
	t.Log(string(outputBytes))
	return outputBytes
}

func TestAcceptance_Reconcile(t *testing.T) {
	out := runMarquee(t, "--format", "json", "reconcile", "--now", "2026-10-17T20:00:00+08:00")

	var view services.View
	require.NoError(t, json.Unmarshal(out, &view))
	require.True(t, view.Ready)
	assert.Empty(t, view.Pending)
	assert.Equal(t, "2026-10-17", view.ActiveDate)
	require.Len(t, view.Tabs, 3)
	assert.Equal(t, "今天 (10/17)", view.Tabs[0].Label)

	require.Len(t, view.BoxOffice, 3)
	assert.Equal(t, "12.3萬", view.BoxOffice[0].TicketsLabel)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/1pdfLvkbY9ohJlCjQH2CZjjYVvJ.jpg", view.BoxOffice[0].PosterURL)

	require.Len(t, view.Cinemas, 4)
	assert.Equal(t, 4, view.Total)
	assert.False(t, view.Truncated)

	assert.Equal(t, "C1", view.Cinemas[0].ID)
	require.Len(t, view.Cinemas[0].Showtimes, 1)
	assert.Equal(t, "21:15", view.Cinemas[0].Showtimes[0].Time)

	assert.Equal(t, "C9", view.Cinemas[1].ID, "美麗華大直影城 lands on the brand's directory entry")
	require.Len(t, view.Cinemas[1].Showtimes, 2)
	assert.Equal(t, "13:00", view.Cinemas[1].Showtimes[0].Time)
	assert.Equal(t, "NT$ 320", view.Cinemas[1].Showtimes[0].Price)
	assert.Equal(t, "19:30", view.Cinemas[1].Showtimes[1].Time)

	assert.Equal(t, "C4", view.Cinemas[2].ID)
	assert.True(t, view.Cinemas[2].DefaultedLocation)

	assert.True(t, view.Cinemas[3].Synthetic)
	assert.Equal(t, "花蓮秀泰影城", view.Cinemas[3].Name)
}

func TestAcceptance_ReconcileTomorrowNearOrigin(t *testing.T) {
	out := runMarquee(t, "--format", "json", "reconcile",
		"--now", "2026-10-17T20:00:00+08:00",
		"--date", "1",
		"--origin", "25.0840,121.5570",
	)

	var view services.View
	require.NoError(t, json.Unmarshal(out, &view))
	assert.Equal(t, "2026-10-18", view.ActiveDate)
	require.Len(t, view.Cinemas, 2)
	assert.Equal(t, "C9", view.Cinemas[0].ID, "nearest first")
	assert.Equal(t, "C1", view.Cinemas[1].ID)
	require.NotNil(t, view.Cinemas[0].DistanceKm)
	assert.Less(t, *view.Cinemas[0].DistanceKm, 1.0)
}

func TestAcceptance_ReconcileDense(t *testing.T) {
	out := string(runMarquee(t, "reconcile", "--now", "2026-10-17T20:00:00+08:00"))

	assert.Contains(t, out, "[今天 (10/17)]")
	assert.Contains(t, out, "美麗華影城")
	assert.Contains(t, out, "花蓮秀泰影城 (unlisted)")
	assert.Contains(t, out, "4 cinemas")
}
