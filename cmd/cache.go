package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/spotsync/internal/cache"
	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheReconcile repairs the manifest against what is actually in the
// artifact cache.
//
// Artifacts on disk with no manifest entry are adopted (matched back to
// tracks through the metadata database) so a later sync does not
// re-fetch them. Entries claiming artifacts that are gone are
// downgraded so the next sync fetches them again. With --prune,
// unmatched artifacts are deleted.
func (r *Runner) CacheReconcile(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	store := manifest.NewStore(config.Sync.OutputDir)
	man, err := store.Load()
	if err != nil {
		if !errors.Is(err, shared.ErrManifestCorrupt) {
			return fmt.Errorf("manifest error: %w", err)
		}
		r.logger.Warn("manifest unreadable, rebuilding from cache", "error", err)
	}

	layer, err := cache.New(filepath.Join(config.Sync.OutputDir, cache.DirName))
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	artifacts, err := layer.Artifacts()
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	claimed := map[string]string{}
	for identity, entry := range man.Entries {
		if entry.Filename != "" {
			claimed[entry.Filename] = identity
		}
	}

	known := r.knownFilenames(config)

	var adopted, downgraded, orphaned int

	for _, filename := range artifacts {
		if _, ok := claimed[filename]; ok {
			continue
		}

		track, ok := known[filename]
		if !ok {
			orphaned++
			if cmd.Bool("prune") {
				if err := layer.Remove(filename); err != nil {
					r.logger.Warn("failed to prune orphan", "file", filename, "error", err)
				} else {
					r.writePlainln("Pruned orphan: %s", filename)
				}
			} else {
				r.writePlainln("Orphaned artifact: %s", filename)
			}
			continue
		}

		entry := man.Entry(track.Identity())
		if entry == nil {
			entry = &manifest.Entry{
				Title:  track.Title(),
				Artist: track.Artist(),
				Album:  track.Album(),
			}
		}
		entry.Filename = filename
		entry.Status = manifest.StatusFetched
		entry.LastError = ""
		man.Entries[track.Identity()] = entry
		adopted++
		r.writePlainln("Adopted: %s", filename)
	}

	// Entries claiming artifacts the cache no longer holds get a
	// re-fetch on the next sync.
	for identity, entry := range man.Entries {
		if entry.Status != manifest.StatusFetched {
			continue
		}
		if _, ok := layer.Lookup(entry.Filename); !ok {
			entry.Status = manifest.StatusFailed
			entry.LastError = "artifact missing from cache"
			downgraded++
			r.logger.Info("artifact missing, will re-fetch", "identity", identity, "file", entry.Filename)
		}
	}

	if err := store.Save(man); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	r.writePlainln("Reconciled cache: %d adopted, %d marked for re-fetch, %d orphaned.", adopted, downgraded, orphaned)
	return nil
}

// CacheStats summarizes the cache and manifest.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	store := manifest.NewStore(config.Sync.OutputDir)
	man, err := store.Load()
	if err != nil && !errors.Is(err, shared.ErrManifestCorrupt) {
		return fmt.Errorf("manifest error: %w", err)
	}

	layer, err := cache.New(filepath.Join(config.Sync.OutputDir, cache.DirName))
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	artifacts, err := layer.Artifacts()
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	var fetched, failed, pending int
	for _, entry := range man.Entries {
		switch entry.Status {
		case manifest.StatusFetched:
			fetched++
		case manifest.StatusFailed:
			failed++
		default:
			pending++
		}
	}

	r.writePlainln("Artifacts on disk: %d", len(artifacts))
	r.writePlainln("Tracked entries:   %d (%d fetched, %d failed, %d pending)",
		len(man.Entries), fetched, failed, pending)
	r.writePlainln("Playlists synced:  %d", len(man.Playlists))
	return nil
}

// knownFilenames maps expected artifact filenames to persisted tracks
// using the metadata database. Without a database the map is empty and
// every unclaimed artifact counts as orphaned.
func (r *Runner) knownFilenames(config *shared.Config) map[string]*models.PersistedTrack {
	known := map[string]*models.PersistedTrack{}
	if config.Database.Path == "" {
		return known
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		r.logger.Warn("metadata database unavailable", "error", err)
		return known
	}
	defer db.Close()

	repo := repositories.NewTrackRepository(db)
	tracks, err := repo.List(map[string]any{})
	if err != nil {
		r.logger.Warn("failed to list cached tracks", "error", err)
		return known
	}

	for _, track := range tracks {
		known[shared.TrackFilename(track.Title(), track.Artist(), config.Fetch.AudioFormat)] = track
	}
	return known
}

// cacheCommand handles cache inspection and repair
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and repair the artifact cache",
		Commands: []*cli.Command{
			{
				Name:  "reconcile",
				Usage: "Rebuild manifest state from cached artifacts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Delete artifacts that cannot be matched to any track",
					},
				},
				Action: r.CacheReconcile,
			},
			{
				Name:  "stats",
				Usage: "Show cache and manifest statistics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.CacheStats,
			},
		},
	}
}
