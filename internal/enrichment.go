package internal

import "context"

type PosterProvider interface {
	// Poster makes a best-effort attempt to find a poster URL for the movie. An empty string with
	// a nil error means the provider had nothing to offer.
	Poster(ctx context.Context, movie Movie) (string, error)
}
