package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/cache"
	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/syncer"
	"github.com/desertthunder/spotsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Exit codes: 0 clean sync, 1 finished with per-operation failures,
// 2 fatal (config, lock, auth, or catalog errors).
const (
	exitPartial = 1
	exitFatal   = 2
)

// Sync mirrors the configured playlists into the output directory.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("config error: %v", err), exitFatal)
	}
	if err := config.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("config error: %v", err), exitFatal)
	}

	dryRun := cmd.Bool("dry-run")
	outputDir := config.Sync.OutputDir

	var folders *shared.FolderMapping
	if config.Sync.FoldersFile != "" {
		if folders, err = shared.LoadFolders(config.Sync.FoldersFile); err != nil {
			return cli.Exit(fmt.Sprintf("folders file error: %v", err), exitFatal)
		}
	}

	catalog, err := r.resolveCatalog(config)
	if err != nil {
		return cli.Exit(fmt.Sprintf("catalog error: %v", err), exitFatal)
	}
	if err := catalog.Authenticate(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("authentication failed: %v", err), exitFatal)
	}

	store := manifest.NewStore(outputDir)
	man, err := store.Load()
	if err != nil {
		if !errors.Is(err, shared.ErrManifestCorrupt) {
			return cli.Exit(fmt.Sprintf("manifest error: %v", err), exitFatal)
		}
		// Continue with an empty manifest; the first save moves the
		// unreadable file aside, so a dry run leaves it untouched.
		r.logger.Warn("manifest unreadable, starting over", "error", err)
		r.writePlainln("Warning: manifest is corrupt; a full re-fetch will occur and the old file will be kept as %s.corrupt.", manifest.Filename)
	}

	source := &syncer.SnapshotSource{
		Catalog: catalog,
		Folders: folders,
		UserID:  config.Credentials.Spotify.UserID,
		Logger:  r.logger,
	}
	opts := syncer.ReconcileOpts{
		Limit:          cmd.Int("limit"),
		LimitPlaylists: cmd.Int("limit-playlists"),
		AudioFormat:    config.Fetch.AudioFormat,
	}

	parallelism := config.Fetch.Parallelism
	if n := cmd.Int("parallel"); n > 0 {
		parallelism = n
	}

	var result *syncer.Result
	if cmd.Bool("ui") && !dryRun {
		// Snapshot building happens inside the UI's run so the resolve
		// phase streams into the progress view.
		executor, release, err := r.syncExecutor(config, store, parallelism)
		if err != nil {
			return cli.Exit(err.Error(), exitFatal)
		}
		defer release()

		result, err = r.runWithUI(ctx, func(ctx context.Context, progress chan<- syncer.ProgressUpdate) (*syncer.Result, error) {
			source.Progress = progress
			snaps, err := source.Build(ctx, man)
			if err != nil {
				return nil, err
			}
			return executor.Execute(ctx, man, syncer.Reconcile(man, snaps, opts), progress)
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("sync aborted: %v", err), exitFatal)
		}
	} else {
		snaps, err := source.Build(ctx, man)
		if err != nil {
			return cli.Exit(fmt.Sprintf("catalog error: %v", err), exitFatal)
		}
		if len(snaps) == 0 {
			r.writePlainln("No playlists to sync.")
			return nil
		}

		plan := syncer.Reconcile(man, snaps, opts)
		if dryRun {
			return r.writePlain("%s", formatter.PlanToText(plan))
		}

		executor, release, err := r.syncExecutor(config, store, parallelism)
		if err != nil {
			return cli.Exit(err.Error(), exitFatal)
		}
		defer release()

		result, err = executor.Execute(ctx, man, plan, nil)
		if err != nil {
			return cli.Exit(fmt.Sprintf("sync aborted: %v", err), exitFatal)
		}
	}

	if result == nil {
		// The monitor was quit before the run finished.
		r.writePlainln("Sync interrupted before completion.")
		return nil
	}

	r.writePlainln("%s", formatter.Summary(result))
	if result.Failed > 0 {
		r.writePlain("%s", formatter.ResultToText(result))
		return cli.Exit("", exitPartial)
	}

	return nil
}

// trackCacher opens the metadata database when one is configured.
// Sync works without it; the cache reconcile command just loses its
// ability to resolve adopted artifacts back to tracks.
func (r *Runner) trackCacher(config *shared.Config) syncer.TrackCacher {
	if config.Database.Path == "" {
		return nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		r.logger.Warn("metadata database unavailable", "error", err)
		return nil
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		r.logger.Warn("metadata migrations failed", "error", err)
		db.Close()
		return nil
	}

	return repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db))
}

// syncExecutor acquires the run lock and assembles the executor. The
// returned release func must run when the sync finishes.
func (r *Runner) syncExecutor(config *shared.Config, store *manifest.Store, parallelism int) (*syncer.Executor, func(), error) {
	lock, err := syncer.AcquireLock(config.Sync.OutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("lock error: %w", err)
	}

	layer, err := cache.New(filepath.Join(config.Sync.OutputDir, cache.DirName))
	if err != nil {
		lock.Release()
		return nil, nil, fmt.Errorf("cache error: %w", err)
	}

	fetcher, err := r.resolveFetcher(config)
	if err != nil {
		lock.Release()
		return nil, nil, fmt.Errorf("fetcher error: %w", err)
	}

	executor := &syncer.Executor{
		Store:       store,
		Cache:       layer,
		Fetcher:     fetcher,
		Tracks:      r.trackCacher(config),
		Logger:      r.logger,
		OutputDir:   config.Sync.OutputDir,
		Parallelism: parallelism,
		RateLimit:   config.Fetch.RateLimit,
	}
	return executor, func() { lock.Release() }, nil
}

func (r *Runner) runWithUI(ctx context.Context, run ui.RunFunc) (*syncer.Result, error) {
	model := ui.NewModel(ctx, run)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return nil, fmt.Errorf("ui error: %w", err)
	}
	return model.Result()
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror configured playlists into local folders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the plan without fetching or writing anything",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Cap the number of tracks considered per playlist",
			},
			&cli.IntFlag{
				Name:  "limit-playlists",
				Usage: "Sync only the first N configured playlists",
			},
			&cli.IntFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "Concurrent fetch workers (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "ui",
				Usage: "Show an interactive progress monitor",
			},
		},
		Action: r.Sync,
	}
}
