// package fetch acquires audio artifacts for tracks.
//
// The sync executor only sees the [Fetcher] interface; the production
// implementation shells out to yt-dlp, tests use [Func] fakes.
package fetch

import (
	"context"

	"github.com/desertthunder/spotsync/internal/models"
)

// Fetcher obtains the audio artifact for a track and returns the path
// of the downloaded file. The file is handed off to the cache layer by
// the caller; implementations write into destDir and must not touch
// anything else.
type Fetcher interface {
	Fetch(ctx context.Context, track models.Track, destDir string) (string, error)
	Name() string
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, track models.Track, destDir string) (string, error)

func (f Func) Fetch(ctx context.Context, track models.Track, destDir string) (string, error) {
	return f(ctx, track, destDir)
}

func (f Func) Name() string { return "func" }
