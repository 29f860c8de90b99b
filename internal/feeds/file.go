package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/drewfead/marquee/internal"
)

// File returns a feed that reads <dir>/<kind>.json, the same layout PullGolden writes. The request
// is ignored: a file holds one snapshot.
func File(kind internal.FeedKind, dir string) internal.Feed {
	return &fileFeed{kind: kind, path: goldenPath(dir, string(kind))}
}

type fileFeed struct {
	kind internal.FeedKind
	path string
}

func (f *fileFeed) Descriptor() string {
	return "file:" + f.path
}

func (f *fileFeed) Fetch(ctx context.Context, _ internal.FeedRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug("feeds: read", "feed", f.kind, "path", f.path)
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s feed: %w", f.kind, err)
	}
	return data, nil
}
