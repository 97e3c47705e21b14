package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// YTDLPFetcher downloads audio via the yt-dlp binary, searching for the
// track by artist and title and extracting a single audio file.
type YTDLPFetcher struct {
	binPath     string
	audioFormat string
}

// NewYTDLPFetcher locates the yt-dlp binary and returns a fetcher.
// binary may be a name resolved on PATH or an explicit path; empty
// defaults to "yt-dlp".
func NewYTDLPFetcher(binary, audioFormat string) (*YTDLPFetcher, error) {
	if binary == "" {
		binary = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "mp3"
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not available: %w", err)
	}

	return &YTDLPFetcher{binPath: path, audioFormat: audioFormat}, nil
}

func (f *YTDLPFetcher) Name() string { return "yt-dlp" }

// Fetch downloads the best audio match for the track into destDir,
// tags the resulting file, and returns its path.
func (f *YTDLPFetcher) Fetch(ctx context.Context, track models.Track, destDir string) (string, error) {
	filename := shared.TrackFilename(track.Title, track.Artist, f.audioFormat)
	outPath := filepath.Join(destDir, filename)

	cmd := exec.CommandContext(ctx, f.binPath, f.args(track, outPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: yt-dlp: %v: %s", shared.ErrFetchFailed, err, lastLine(out))
	}

	// yt-dlp reports success for some partial failures; trust the disk.
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("%w: artifact missing after download: %s", shared.ErrFetchFailed, filename)
	}

	// ID3 frames only make sense on mp3 artifacts.
	if f.audioFormat == "mp3" {
		if err := WriteTags(outPath, track); err != nil {
			// Tagging failures don't invalidate the artifact.
			return outPath, nil
		}
	}

	return outPath, nil
}

// args builds the yt-dlp invocation: search once, extract audio, write
// to the exact output path.
func (f *YTDLPFetcher) args(track models.Track, outPath string) []string {
	query := searchQuery(track)
	template := strings.TrimSuffix(outPath, "."+f.audioFormat) + ".%(ext)s"
	return []string{
		"--no-playlist",
		"--extract-audio",
		"--audio-format", f.audioFormat,
		"--audio-quality", "0",
		"--no-overwrites",
		"--output", template,
		query,
	}
}

// searchQuery builds a single-result YouTube search for the track.
func searchQuery(track models.Track) string {
	terms := track.Title
	if track.Artist != "" {
		terms = track.Artist + " - " + track.Title
	}
	return "ytsearch1:" + terms
}

// lastLine returns the final non-empty line of command output, which is
// where yt-dlp puts its error summary.
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
