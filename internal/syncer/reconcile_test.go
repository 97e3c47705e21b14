package syncer

import (
	"testing"

	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

func track(id, title, artist string) models.Track {
	return models.Track{ID: id, Title: title, Artist: artist}
}

func snap(id, name, folder string, tracks ...models.Track) Snapshot {
	return Snapshot{
		PlaylistID: id,
		Name:       name,
		Folder:     folder,
		Dest:       DestKey(folder, name),
		Tracks:     tracks,
	}
}

// applyPlan mirrors the executor's manifest bookkeeping so reconcile
// tests can verify convergence without touching a filesystem.
func applyPlan(man *manifest.Manifest, plan *Plan) {
	for _, op := range plan.Fetches {
		entry := man.Entry(op.Identity)
		if entry == nil {
			entry = &manifest.Entry{Title: op.Track.Title, Artist: op.Track.Artist}
			man.Entries[op.Identity] = entry
		}
		entry.Status = manifest.StatusFetched
		entry.Filename = op.Filename
	}
	for _, op := range plan.Materializes {
		if entry := man.Entry(op.Identity); entry != nil {
			entry.AddMember(op.Dest)
		}
	}
	for _, op := range plan.Removes {
		if entry := man.Entry(op.Identity); entry != nil {
			entry.RemoveMember(op.Dest)
		}
	}
	for _, op := range plan.Prunes {
		delete(man.Entries, op.Identity)
	}
	for _, update := range plan.Playlists {
		state := update.State
		man.Playlists[update.PlaylistID] = &state
	}
}

func TestReconcileFirstSync(t *testing.T) {
	man := manifest.New()
	snaps := []Snapshot{
		snap("pl1", "House", "Dance",
			track("t1", "Song One", "Artist A"),
			track("t2", "Song Two", "Artist B"),
		),
	}

	plan := Reconcile(man, snaps, ReconcileOpts{})

	if len(plan.Fetches) != 2 {
		t.Errorf("expected 2 fetches, got %d", len(plan.Fetches))
	}
	if len(plan.Materializes) != 2 {
		t.Errorf("expected 2 materializes, got %d", len(plan.Materializes))
	}
	if len(plan.Removes) != 0 || len(plan.Prunes) != 0 {
		t.Errorf("expected no removes or prunes, got %d/%d", len(plan.Removes), len(plan.Prunes))
	}
	if len(plan.Playlists) != 1 {
		t.Fatalf("expected 1 playlist update, got %d", len(plan.Playlists))
	}
	if got := plan.Playlists[0].State.Songs; len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Errorf("unexpected playlist songs: %v", got)
	}
	if plan.Materializes[0].Dest != "Dance/House" {
		t.Errorf("unexpected dest: %s", plan.Materializes[0].Dest)
	}
}

func TestReconcileSharedTrackFetchedOnce(t *testing.T) {
	man := manifest.New()
	common := track("t1", "Common Song", "Artist A")
	snaps := []Snapshot{
		snap("pl1", "Alpha", "", common, track("t2", "Only Alpha", "Artist B")),
		snap("pl2", "Beta", "", common),
	}

	plan := Reconcile(man, snaps, ReconcileOpts{})

	if len(plan.Fetches) != 2 {
		t.Errorf("expected 2 fetches (t1 deduplicated), got %d", len(plan.Fetches))
	}
	if len(plan.Materializes) != 3 {
		t.Errorf("expected 3 materializes, got %d", len(plan.Materializes))
	}

	var t1Fetches int
	for _, op := range plan.Fetches {
		if op.Identity == "t1" {
			t1Fetches++
		}
	}
	if t1Fetches != 1 {
		t.Errorf("expected exactly 1 fetch for t1, got %d", t1Fetches)
	}
}

func TestReconcileIdempotence(t *testing.T) {
	man := manifest.New()
	snaps := []Snapshot{
		snap("pl1", "Alpha", "Rock",
			track("t1", "Song One", "Artist A"),
			track("t2", "Song Two", "Artist B"),
		),
		snap("pl2", "Beta", "",
			track("t1", "Song One", "Artist A"),
		),
	}

	first := Reconcile(man, snaps, ReconcileOpts{})
	applyPlan(man, first)

	second := Reconcile(man, snaps, ReconcileOpts{})
	if !second.Empty() {
		t.Errorf("expected empty plan after convergence, got %d ops", second.Ops())
	}
}

func TestReconcileRemoveKeepsSharedArtifact(t *testing.T) {
	man := manifest.New()
	common := track("t1", "Common Song", "Artist A")
	both := []Snapshot{
		snap("pl1", "Alpha", "", common),
		snap("pl2", "Beta", "", common),
	}
	applyPlan(man, Reconcile(man, both, ReconcileOpts{}))

	// t1 leaves Alpha but stays in Beta.
	after := []Snapshot{
		snap("pl1", "Alpha", ""),
		snap("pl2", "Beta", "", common),
	}
	plan := Reconcile(man, after, ReconcileOpts{})

	if len(plan.Removes) != 1 {
		t.Fatalf("expected 1 remove, got %d", len(plan.Removes))
	}
	if plan.Removes[0].Dest != "Alpha" {
		t.Errorf("expected removal from Alpha, got %s", plan.Removes[0].Dest)
	}
	if len(plan.Prunes) != 0 {
		t.Errorf("expected no prunes while Beta still references t1, got %d", len(plan.Prunes))
	}
}

func TestReconcilePruneWhenUnreferenced(t *testing.T) {
	man := manifest.New()
	only := track("t1", "Lonely Song", "Artist A")
	applyPlan(man, Reconcile(man, []Snapshot{snap("pl1", "Alpha", "", only)}, ReconcileOpts{}))

	plan := Reconcile(man, []Snapshot{snap("pl1", "Alpha", "")}, ReconcileOpts{})

	if len(plan.Removes) != 1 {
		t.Errorf("expected 1 remove, got %d", len(plan.Removes))
	}
	if len(plan.Prunes) != 1 {
		t.Fatalf("expected 1 prune, got %d", len(plan.Prunes))
	}
	if plan.Prunes[0].Identity != "t1" {
		t.Errorf("expected t1 pruned, got %s", plan.Prunes[0].Identity)
	}

	applyPlan(man, plan)
	if man.Entry("t1") != nil {
		t.Error("expected t1 entry gone after prune")
	}
}

func TestReconcileUntouchedPlaylistNeverPruned(t *testing.T) {
	man := manifest.New()
	applyPlan(man, Reconcile(man, []Snapshot{
		snap("pl1", "Alpha", "", track("t1", "Song One", "Artist A")),
		snap("pl2", "Beta", "", track("t2", "Song Two", "Artist B")),
	}, ReconcileOpts{}))

	// Beta could not be resolved this run; only Alpha is snapshotted.
	plan := Reconcile(man, []Snapshot{
		snap("pl1", "Alpha", "", track("t1", "Song One", "Artist A")),
	}, ReconcileOpts{})

	if !plan.Empty() {
		t.Errorf("expected empty plan, got %d ops", plan.Ops())
	}
	if man.Entry("t2") == nil {
		t.Error("t2 should remain tracked while Beta is unresolved")
	}
}

func TestReconcileRefetchesFailedEntries(t *testing.T) {
	man := manifest.New()
	man.Entries["t1"] = &manifest.Entry{
		Title:     "Song One",
		Artist:    "Artist A",
		Status:    manifest.StatusFailed,
		LastError: "network timeout",
	}

	plan := Reconcile(man, []Snapshot{
		snap("pl1", "Alpha", "", track("t1", "Song One", "Artist A")),
	}, ReconcileOpts{})

	if len(plan.Fetches) != 1 {
		t.Errorf("expected failed entry to be re-fetched, got %d fetches", len(plan.Fetches))
	}
}

func TestReconcileFetchedEntryNewDestOnlyMaterializes(t *testing.T) {
	man := manifest.New()
	man.Entries["t1"] = &manifest.Entry{
		Title:     "Song One",
		Artist:    "Artist A",
		Filename:  shared.TrackFilename("Song One", "Artist A", ""),
		Status:    manifest.StatusFetched,
		Playlists: []string{"Alpha"},
	}
	man.Playlists["pl1"] = &manifest.PlaylistState{Name: "Alpha", Songs: []string{"t1"}}

	plan := Reconcile(man, []Snapshot{
		snap("pl1", "Alpha", "", track("t1", "Song One", "Artist A")),
		snap("pl2", "Beta", "", track("t1", "Song One", "Artist A")),
	}, ReconcileOpts{})

	if len(plan.Fetches) != 0 {
		t.Errorf("expected no fetches for an already-fetched track, got %d", len(plan.Fetches))
	}
	if len(plan.Materializes) != 1 || plan.Materializes[0].Dest != "Beta" {
		t.Errorf("expected single materialize into Beta, got %v", plan.Materializes)
	}
}

func TestReconcileFolderMove(t *testing.T) {
	man := manifest.New()
	applyPlan(man, Reconcile(man, []Snapshot{
		snap("pl1", "Alpha", "Old", track("t1", "Song One", "Artist A")),
	}, ReconcileOpts{}))

	plan := Reconcile(man, []Snapshot{
		snap("pl1", "Alpha", "New", track("t1", "Song One", "Artist A")),
	}, ReconcileOpts{})

	if len(plan.Materializes) != 1 || plan.Materializes[0].Dest != "New/Alpha" {
		t.Errorf("expected materialize into New/Alpha, got %v", plan.Materializes)
	}
	if len(plan.Removes) != 1 || plan.Removes[0].Dest != "Old/Alpha" {
		t.Errorf("expected removal from Old/Alpha, got %v", plan.Removes)
	}
	if len(plan.Prunes) != 0 {
		t.Errorf("expected no prunes on a folder move, got %d", len(plan.Prunes))
	}
}

func TestReconcileLimits(t *testing.T) {
	tracks := []models.Track{
		track("t1", "One", "A"),
		track("t2", "Two", "A"),
		track("t3", "Three", "A"),
		track("t4", "Four", "A"),
	}

	t.Run("track limit truncates before diffing", func(t *testing.T) {
		man := manifest.New()
		plan := Reconcile(man, []Snapshot{snap("pl1", "Alpha", "", tracks...)}, ReconcileOpts{Limit: 2})

		if len(plan.Fetches) != 2 {
			t.Errorf("expected 2 fetches under limit, got %d", len(plan.Fetches))
		}
		if got := plan.Playlists[0].State.Songs; len(got) != 2 {
			t.Errorf("expected recorded state capped at 2 songs, got %v", got)
		}
	})

	t.Run("tracks beyond limit are treated as departed", func(t *testing.T) {
		man := manifest.New()
		applyPlan(man, Reconcile(man, []Snapshot{snap("pl1", "Alpha", "", tracks...)}, ReconcileOpts{}))

		plan := Reconcile(man, []Snapshot{snap("pl1", "Alpha", "", tracks...)}, ReconcileOpts{Limit: 2})
		if len(plan.Removes) != 2 {
			t.Errorf("expected 2 removes for tracks past the cap, got %d", len(plan.Removes))
		}
		if len(plan.Prunes) != 2 {
			t.Errorf("expected 2 prunes for now-unreferenced tracks, got %d", len(plan.Prunes))
		}
	})

	t.Run("playlist limit keeps caller order", func(t *testing.T) {
		man := manifest.New()
		snaps := []Snapshot{
			snap("pl1", "Alpha", "", tracks[0]),
			snap("pl2", "Beta", "", tracks[1]),
			snap("pl3", "Gamma", "", tracks[2]),
		}
		plan := Reconcile(man, snaps, ReconcileOpts{LimitPlaylists: 2})

		if len(plan.Playlists) != 2 {
			t.Fatalf("expected 2 playlist updates, got %d", len(plan.Playlists))
		}
		if plan.Playlists[0].PlaylistID != "pl1" || plan.Playlists[1].PlaylistID != "pl2" {
			t.Errorf("expected first two playlists in order, got %v", plan.Playlists)
		}
		if len(plan.Fetches) != 2 {
			t.Errorf("expected fetches only for the first two playlists, got %d", len(plan.Fetches))
		}
	})
}

func TestReconcileDuplicateTrackInPlaylist(t *testing.T) {
	man := manifest.New()
	dup := track("t1", "Song One", "Artist A")
	plan := Reconcile(man, []Snapshot{snap("pl1", "Alpha", "", dup, dup)}, ReconcileOpts{})

	if len(plan.Fetches) != 1 {
		t.Errorf("expected 1 fetch for a duplicated track, got %d", len(plan.Fetches))
	}
	if len(plan.Materializes) != 1 {
		t.Errorf("expected 1 materialize for a duplicated track, got %d", len(plan.Materializes))
	}
	if got := plan.Playlists[0].State.Songs; len(got) != 1 {
		t.Errorf("expected deduplicated songs list, got %v", got)
	}
}
