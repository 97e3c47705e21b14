package syncer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Snapshot is one playlist's freshly observed remote state. Snapshots
// are produced each run and diffed against the manifest; they are never
// persisted directly.
type Snapshot struct {
	PlaylistID string
	Name       string
	Folder     string
	Dest       string // slash-separated destination relative to the output dir
	Tracks     []models.Track
}

// DestKey projects a folder and playlist name into the destination key
// used for manifest membership and on-disk folder paths.
func DestKey(folder, name string) string {
	if folder != "" {
		return path.Join(shared.Sanitize(folder), shared.Sanitize(name))
	}
	return shared.Sanitize(name)
}

// SnapshotSource resolves configured playlist names against the remote
// catalog and builds snapshots of their current membership.
type SnapshotSource struct {
	Catalog     services.Catalog
	Folders     *shared.FolderMapping
	UserID      string
	Logger      *log.Logger
	Concurrency int                   // concurrent playlist track fetches, default 4
	Progress    chan<- ProgressUpdate // optional
}

// Build produces snapshots for every resolvable configured playlist, in
// folders-file order. When no folders file is configured every playlist
// the user owns is mirrored into a folder named after it.
//
// A playlist missing from the user listing is resolved through the
// manifest's playlist ID cache when possible; otherwise it is skipped
// for this run. A skipped playlist produces no snapshot and therefore
// no removals or prunes: an upstream listing gap must never look like a
// deletion. Newly resolved IDs are recorded into the manifest's ID
// cache for later runs.
func (s *SnapshotSource) Build(ctx context.Context, man *manifest.Manifest) ([]Snapshot, error) {
	listed, err := s.Catalog.ListUserPlaylists(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists for user %s: %v", shared.ErrCatalogUnavailable, s.UserID, err)
	}
	s.Logger.Info("fetched user playlists", "user", s.UserID, "count", len(listed))

	targets := s.resolveTargets(listed, man)
	if len(targets) == 0 {
		return nil, nil
	}

	snaps := make([]Snapshot, len(targets))
	errs := make([]error, len(targets))

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	// The group provides bounded parallelism only; per-playlist errors
	// are collected, not fatal, so one bad playlist cannot cancel the
	// rest of the run.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, target := range targets {
		emit(s.Progress, resolveUpdate(i+1, len(targets), target.name))
		g.Go(func() error {
			tracks, err := s.Catalog.ListPlaylistTracks(gctx, target.id)
			if err != nil {
				errs[i] = err
				return nil
			}
			snaps[i] = Snapshot{
				PlaylistID: target.id,
				Name:       target.name,
				Folder:     target.folder,
				Dest:       DestKey(target.folder, target.name),
				Tracks:     tracks,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Snapshot
	for i, target := range targets {
		if errs[i] != nil {
			s.Logger.Warn("failed to fetch playlist tracks; skipping this run",
				"playlist", target.name, "error", errs[i])
			continue
		}
		out = append(out, snaps[i])
	}

	return out, nil
}

type playlistTarget struct {
	id     string
	name   string
	folder string
}

// resolveTargets maps configured playlist names to remote IDs, in the
// caller-supplied (folders file) order.
func (s *SnapshotSource) resolveTargets(listed []models.Playlist, man *manifest.Manifest) []playlistTarget {
	if s.Folders == nil || s.Folders.Len() == 0 {
		// No folders file: mirror everything the user owns.
		targets := make([]playlistTarget, 0, len(listed))
		for _, pl := range listed {
			targets = append(targets, playlistTarget{id: pl.ID, name: pl.Name})
		}
		return targets
	}

	byName := make(map[string]string, len(listed))
	byLower := make(map[string]string, len(listed))
	for _, pl := range listed {
		byName[pl.Name] = pl.ID
		byLower[strings.ToLower(pl.Name)] = pl.ID
	}

	var targets []playlistTarget
	for _, name := range s.Folders.Playlists() {
		id, ok := byName[name]
		if !ok {
			id, ok = byLower[strings.ToLower(name)]
		}
		if !ok {
			// Not in the listing; the ID cache covers playlists the
			// listing API drops (Unicode-name gap).
			id, ok = man.PlaylistIDs[name]
			if ok {
				s.Logger.Warn("playlist missing from user listing; using cached ID", "playlist", name)
			}
		}
		if !ok {
			s.Logger.Warn("could not resolve playlist; skipping this run", "playlist", name)
			continue
		}

		man.PlaylistIDs[name] = id
		targets = append(targets, playlistTarget{id: id, name: name, folder: s.Folders.Folder(name)})
	}

	return targets
}
