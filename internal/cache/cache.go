// package cache manages the shared on-disk artifact cache.
//
// The cache holds at most one artifact per track regardless of how many
// playlist folders reference it. Folders receive their own copies (hard
// links where the filesystem allows), so each folder stays
// self-contained and independently deletable.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirName is the cache directory's name inside the output directory.
const DirName = ".cache"

// Layer is a handle to the cache directory. It is passed explicitly to
// the executor; there is no ambient global state, so tests can point it
// at a temp directory.
type Layer struct {
	dir string
}

// New creates a Layer rooted at dir, creating the directory if needed.
func New(dir string) (*Layer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Layer{dir: dir}, nil
}

// Dir returns the cache directory path.
func (l *Layer) Dir() string {
	return l.dir
}

// Path returns the cache path for a filename.
func (l *Layer) Path(filename string) string {
	return filepath.Join(l.dir, filename)
}

// Lookup reports whether an artifact with the given filename is present
// and returns its path. This is the lazy existence check: manifest
// entries claiming an artifact are only trusted as far as the file
// actually being here.
func (l *Layer) Lookup(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	path := l.Path(filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Store moves a fetched artifact into the cache under filename and
// returns the cache path. A same-name artifact already present is
// replaced.
func (l *Layer) Store(src, filename string) (string, error) {
	dst := l.Path(filename)
	if src == dst {
		return dst, nil
	}
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	// Rename fails across filesystems; fall back to a copy.
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	os.Remove(src)
	return dst, nil
}

// Materialize places the cached artifact into a destination folder,
// leaving the cache copy untouched. It hard-links when the filesystem
// supports it and copies otherwise. Returns the destination path.
func (l *Layer) Materialize(filename, destDir string) (string, error) {
	src, ok := l.Lookup(filename)
	if !ok {
		return "", fmt.Errorf("artifact not in cache: %s", filename)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create destination folder: %w", err)
	}

	dst := filepath.Join(destDir, filename)
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	if err := os.Link(src, dst); err == nil {
		return dst, nil
	}
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to materialize artifact: %w", err)
	}
	return dst, nil
}

// Remove deletes an artifact from the cache. Missing artifacts are not
// an error.
func (l *Layer) Remove(filename string) error {
	err := os.Remove(l.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cached artifact: %w", err)
	}
	return nil
}

// audioExts are the artifact extensions the cache recognizes, covering
// every format yt-dlp can extract to.
var audioExts = map[string]bool{
	".mp3": true, ".opus": true, ".m4a": true, ".aac": true,
	".flac": true, ".ogg": true, ".vorbis": true, ".wav": true,
}

// Artifacts lists cached audio filenames, sorted. Temp files and
// non-audio files are skipped.
func (l *Layer) Artifacts() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if audioExts[strings.ToLower(filepath.Ext(name))] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// copyFile copies src to dst, replacing dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
