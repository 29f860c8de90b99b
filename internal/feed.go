package internal

import (
	"context"
	"net/http"
)

// FeedKind names one of the three independently sourced datasets.
type FeedKind string

const (
	FeedBoxOffice FeedKind = "box-office"
	FeedShowtimes FeedKind = "showtimes"
	FeedCinemas   FeedKind = "cinemas"
)

// FeedRequest narrows a fetch. Showtime feeds are queried per movie and date; the other feeds
// ignore both fields.
type FeedRequest struct {
	MovieID string `json:"movie_id"`
	Date    string `json:"date"`
}

type Feed interface {
	// Descriptor identifies the feed (e.g. for cache keys and registry lookup).
	Descriptor() string
	Fetch(ctx context.Context, req FeedRequest) ([]byte, error)
}

// GoldenFeed extends Feed with the ability to pull and serve golden test data.
type GoldenFeed interface {
	Feed
	PullGolden(ctx context.Context, goldenDir string, req FeedRequest) error
	MountGolden(ctx context.Context, goldenDir string) (http.Handler, error)
}
