package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/cache"
	"github.com/desertthunder/spotsync/internal/fetch"
	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/models"
	"golang.org/x/time/rate"
)

// TrackCacher persists track metadata as a side effect of successful
// fetches. Implementations must tolerate duplicate identities.
type TrackCacher interface {
	CacheTrack(identity string, track models.Track) error
}

// OpFailure records one failed operation within an otherwise continuing
// run.
type OpFailure struct {
	Identity string
	Phase    Phase
	Dest     string
	Err      error
}

// Result summarizes what a sync run actually did.
type Result struct {
	Fetched      int
	Materialized int
	Removed      int
	Pruned       int
	Failed       int
	Failures     []OpFailure
}

// Executor applies a plan against the cache, the output folders, and
// the manifest. Fetches run on a bounded worker pool; all manifest
// mutation happens on the calling goroutine, which is the single
// writer.
type Executor struct {
	Store   *manifest.Store
	Cache   *cache.Layer
	Fetcher fetch.Fetcher
	Tracks  TrackCacher // optional metadata sink
	Logger  *log.Logger

	OutputDir   string
	Parallelism int     // fetch workers, default 1
	RateLimit   float64 // fetches per second, 0 disables throttling
}

type fetchResult struct {
	op  FetchOp
	err error
}

// Execute runs the plan phase by phase: fetches, then materializes,
// then removes, then prunes. The manifest is checkpointed after every
// completed operation so an interrupted run resumes where it left off.
// Individual operation failures are recorded and the run continues;
// only context cancellation aborts early.
func (e *Executor) Execute(ctx context.Context, man *manifest.Manifest, plan *Plan, progress chan<- ProgressUpdate) (*Result, error) {
	res := &Result{}

	if err := e.runFetches(ctx, man, plan.Fetches, res, progress); err != nil {
		return res, err
	}
	if err := e.runMaterializes(ctx, man, plan.Materializes, res, progress); err != nil {
		return res, err
	}
	if err := e.runRemoves(ctx, man, plan.Removes, res, progress); err != nil {
		return res, err
	}
	if err := e.runPrunes(ctx, man, plan.Prunes, res, progress); err != nil {
		return res, err
	}

	now := time.Now().UTC()
	for _, update := range plan.Playlists {
		state := update.State
		state.LastSynced = now
		man.Playlists[update.PlaylistID] = &state
	}
	if err := e.save(man); err != nil {
		return res, err
	}

	emit(progress, doneUpdate())
	return res, nil
}

// runFetches downloads every planned artifact on a worker pool. The
// workers only touch the filesystem; entry updates and checkpoint saves
// happen here, on the single writer goroutine, as results arrive.
func (e *Executor) runFetches(ctx context.Context, man *manifest.Manifest, ops []FetchOp, res *Result, progress chan<- ProgressUpdate) error {
	if len(ops) == 0 {
		return nil
	}

	workers := e.Parallelism
	if workers <= 0 {
		workers = 1
	}
	if workers > len(ops) {
		workers = len(ops)
	}

	var limiter *rate.Limiter
	if e.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.RateLimit), 1)
	}

	jobs := make(chan FetchOp)
	results := make(chan fetchResult)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for op := range jobs {
				results <- fetchResult{op: op, err: e.fetchOne(ctx, op, limiter)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, op := range ops {
			select {
			case jobs <- op:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	step := 0
	for result := range results {
		step++
		op := result.op
		label := fmt.Sprintf("%s - %s", op.Track.Artist, op.Track.Title)

		entry := man.Entry(op.Identity)
		if entry == nil {
			entry = &manifest.Entry{
				Title:  op.Track.Title,
				Artist: op.Track.Artist,
				Album:  op.Track.Album,
			}
		}

		err := result.err
		if err == nil {
			// Trust the artifact only once it is observably in the
			// cache.
			if _, ok := e.Cache.Lookup(op.Filename); !ok {
				err = fmt.Errorf("fetched artifact missing from cache: %s", op.Filename)
			}
		}

		if err != nil {
			entry.Status = manifest.StatusFailed
			entry.LastError = err.Error()
			res.Failed++
			res.Failures = append(res.Failures, OpFailure{Identity: op.Identity, Phase: PhaseFetch, Err: err})
			e.Logger.Warn("fetch failed", "track", label, "error", err)
		} else {
			entry.Status = manifest.StatusFetched
			entry.Filename = op.Filename
			entry.FetchedAt = time.Now().UTC()
			entry.LastError = ""
			res.Fetched++
			if e.Tracks != nil {
				if cerr := e.Tracks.CacheTrack(op.Identity, op.Track); cerr != nil {
					e.Logger.Warn("failed to record track metadata", "track", label, "error", cerr)
				}
			}
		}

		if serr := e.applyDelta(man, manifest.EntryDelta{Identity: op.Identity, Entry: entry}); serr != nil {
			return serr
		}
		emit(progress, fetchUpdate(step, len(ops), op.Identity, label, err))
	}

	return ctx.Err()
}

// fetchOne downloads one track into the cache directory and installs it
// under the planned filename.
func (e *Executor) fetchOne(ctx context.Context, op FetchOp, limiter *rate.Limiter) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := e.Fetcher.Fetch(ctx, op.Track, e.Cache.Dir())
	if err != nil {
		return err
	}
	if _, err := e.Cache.Store(path, op.Filename); err != nil {
		return err
	}
	return nil
}

func (e *Executor) runMaterializes(ctx context.Context, man *manifest.Manifest, ops []DestOp, res *Result, progress chan<- ProgressUpdate) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry := man.Entry(op.Identity)
		if entry == nil || entry.Status != manifest.StatusFetched {
			// The fetch for this identity failed earlier in the run;
			// the failure is already recorded there.
			continue
		}

		if _, ok := e.Cache.Lookup(entry.Filename); !ok {
			// The manifest claims an artifact the cache no longer has.
			// Downgrade the entry so the next run re-fetches it.
			entry.Status = manifest.StatusFailed
			entry.LastError = "artifact missing from cache"
			res.Failed++
			res.Failures = append(res.Failures, OpFailure{
				Identity: op.Identity, Phase: PhaseMaterialize, Dest: op.Dest,
				Err: fmt.Errorf("artifact missing from cache: %s", entry.Filename),
			})
			if serr := e.applyDelta(man, manifest.EntryDelta{Identity: op.Identity, Entry: entry}); serr != nil {
				return serr
			}
			continue
		}

		destDir := filepath.Join(e.OutputDir, filepath.FromSlash(op.Dest))
		_, err := e.Cache.Materialize(entry.Filename, destDir)
		if err != nil {
			_, err = e.Cache.Materialize(entry.Filename, destDir)
		}
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, OpFailure{Identity: op.Identity, Phase: PhaseMaterialize, Dest: op.Dest, Err: err})
			e.Logger.Warn("materialize failed", "dest", op.Dest, "file", entry.Filename, "error", err)
		} else {
			entry.AddMember(op.Dest)
			entry.LastSynced = time.Now().UTC()
			res.Materialized++
			if serr := e.applyDelta(man, manifest.EntryDelta{Identity: op.Identity, Entry: entry}); serr != nil {
				return serr
			}
		}
		emit(progress, materializeUpdate(i+1, len(ops), op.Identity, op.Dest, err))
	}
	return nil
}

func (e *Executor) runRemoves(ctx context.Context, man *manifest.Manifest, ops []DestOp, res *Result, progress chan<- ProgressUpdate) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest := filepath.Join(e.OutputDir, filepath.FromSlash(op.Dest), op.Filename)
		err := os.Remove(dest)
		if err != nil && os.IsNotExist(err) {
			err = nil
		}
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, OpFailure{Identity: op.Identity, Phase: PhaseRemove, Dest: op.Dest, Err: err})
			e.Logger.Warn("remove failed", "dest", op.Dest, "file", op.Filename, "error", err)
			continue
		}

		if entry := man.Entry(op.Identity); entry != nil {
			entry.RemoveMember(op.Dest)
			if serr := e.applyDelta(man, manifest.EntryDelta{Identity: op.Identity, Entry: entry}); serr != nil {
				return serr
			}
		}
		res.Removed++
		emit(progress, removeUpdate(i+1, len(ops), op.Identity, op.Dest))
	}
	return nil
}

// runPrunes deletes unreferenced cache artifacts. Prunes always run
// after every other phase so a mid-run crash can leave an orphaned
// artifact behind but never delete one a playlist still references.
func (e *Executor) runPrunes(ctx context.Context, man *manifest.Manifest, ops []PruneOp, res *Result, progress chan<- ProgressUpdate) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		if entry := man.Entry(op.Identity); entry != nil && len(entry.Playlists) > 0 {
			// A materialize earlier in the run re-referenced this
			// artifact; keep it.
			continue
		}

		if err := e.Cache.Remove(op.Filename); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, OpFailure{Identity: op.Identity, Phase: PhasePrune, Err: err})
			e.Logger.Warn("prune failed", "file", op.Filename, "error", err)
			continue
		}

		if serr := e.applyDelta(man, manifest.EntryDelta{Identity: op.Identity, Entry: nil}); serr != nil {
			return serr
		}
		res.Pruned++
		emit(progress, pruneUpdate(i+1, len(ops), op.Identity))
	}
	return nil
}

// applyDelta checkpoints one entry change, retrying the save once
// before giving up. A failed save aborts the run: continuing past an
// unrecorded mutation would desynchronize the manifest from disk.
func (e *Executor) applyDelta(man *manifest.Manifest, d manifest.EntryDelta) error {
	if err := e.Store.ApplyDelta(man, d); err != nil {
		e.Logger.Warn("manifest save failed; retrying", "error", err)
		if err := e.Store.Save(man); err != nil {
			return fmt.Errorf("failed to checkpoint manifest: %w", err)
		}
	}
	return nil
}

func (e *Executor) save(man *manifest.Manifest) error {
	if err := e.Store.Save(man); err != nil {
		e.Logger.Warn("manifest save failed; retrying", "error", err)
		if err := e.Store.Save(man); err != nil {
			return fmt.Errorf("failed to save manifest: %w", err)
		}
	}
	return nil
}

// emit sends a progress update without ever blocking the run on a slow
// or absent consumer.
func emit(progress chan<- ProgressUpdate, u ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- u:
	default:
	}
}
