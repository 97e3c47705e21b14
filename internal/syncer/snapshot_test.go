package syncer

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	internaltesting "github.com/desertthunder/spotsync/internal/testing"
)

func testFolders(t *testing.T, data string) *shared.FolderMapping {
	t.Helper()
	m, err := shared.ParseFolders([]byte(data))
	if err != nil {
		t.Fatalf("ParseFolders failed: %v", err)
	}
	return m
}

func TestSnapshotSourceBuild(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{
			{ID: "pl1", Name: "House", TrackCount: 2},
			{ID: "pl2", Name: "Evening", TrackCount: 1},
		},
		Tracks: map[string][]models.Track{
			"pl1": {track("t1", "One", "A"), track("t2", "Two", "B")},
			"pl2": {track("t3", "Three", "C")},
		},
	}

	source := &SnapshotSource{
		Catalog: catalog,
		Folders: testFolders(t, `{"Dance": ["House"], "Chill": ["Evening"]}`),
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	man := manifest.New()
	snaps, err := source.Build(context.Background(), man)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Name != "House" || snaps[0].Dest != "Dance/House" {
		t.Errorf("unexpected first snapshot: %+v", snaps[0])
	}
	if snaps[1].Dest != "Chill/Evening" {
		t.Errorf("unexpected second snapshot dest: %s", snaps[1].Dest)
	}
	if len(snaps[0].Tracks) != 2 {
		t.Errorf("expected 2 tracks in House, got %d", len(snaps[0].Tracks))
	}

	// Resolved IDs land in the manifest's name cache.
	if man.PlaylistIDs["House"] != "pl1" || man.PlaylistIDs["Evening"] != "pl2" {
		t.Errorf("expected resolved IDs cached, got %v", man.PlaylistIDs)
	}
}

func TestSnapshotSourceNoFoldersFile(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{{ID: "pl1", Name: "Anything"}},
		Tracks:    map[string][]models.Track{"pl1": {track("t1", "One", "A")}},
	}

	source := &SnapshotSource{
		Catalog: catalog,
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	snaps, err := source.Build(context.Background(), manifest.New())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected all user playlists mirrored, got %d", len(snaps))
	}
	if snaps[0].Dest != "Anything" {
		t.Errorf("expected playlist name as dest, got %s", snaps[0].Dest)
	}
}

func TestSnapshotSourceCaseInsensitiveResolution(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{{ID: "pl1", Name: "house"}},
		Tracks:    map[string][]models.Track{"pl1": {track("t1", "One", "A")}},
	}

	source := &SnapshotSource{
		Catalog: catalog,
		Folders: testFolders(t, `{"Dance": ["House"]}`),
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	snaps, err := source.Build(context.Background(), manifest.New())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].PlaylistID != "pl1" {
		t.Fatalf("expected case-insensitive match, got %+v", snaps)
	}
	// The configured name wins over the listed casing.
	if snaps[0].Name != "House" {
		t.Errorf("expected configured name kept, got %s", snaps[0].Name)
	}
}

func TestSnapshotSourceUnresolvedSkipped(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{{ID: "pl1", Name: "House"}},
		Tracks:    map[string][]models.Track{"pl1": {track("t1", "One", "A")}},
	}

	source := &SnapshotSource{
		Catalog: catalog,
		Folders: testFolders(t, `{"Dance": ["House", "Вечер"]}`),
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	snaps, err := source.Build(context.Background(), manifest.New())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Name != "House" {
		t.Fatalf("expected only resolvable playlist, got %+v", snaps)
	}
}

func TestSnapshotSourceUsesCachedIDs(t *testing.T) {
	// The listing omits the playlist, but an earlier run cached its ID.
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{},
		Tracks:    map[string][]models.Track{"pl9": {track("t1", "One", "A")}},
	}

	source := &SnapshotSource{
		Catalog: catalog,
		Folders: testFolders(t, `{"Dance": ["Вечер"]}`),
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	man := manifest.New()
	man.PlaylistIDs["Вечер"] = "pl9"

	snaps, err := source.Build(context.Background(), man)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].PlaylistID != "pl9" {
		t.Fatalf("expected cached ID used, got %+v", snaps)
	}
}

func TestSnapshotSourceProgress(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{
			{ID: "pl1", Name: "House"},
			{ID: "pl2", Name: "Evening"},
		},
		Tracks: map[string][]models.Track{
			"pl1": {track("t1", "One", "A")},
			"pl2": {track("t2", "Two", "B")},
		},
	}

	progress := make(chan ProgressUpdate, 16)
	source := &SnapshotSource{
		Catalog:  catalog,
		UserID:   "someone",
		Logger:   shared.NewLogger(os.Stderr),
		Progress: progress,
	}

	if _, err := source.Build(context.Background(), manifest.New()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	close(progress)

	var resolves int
	for u := range progress {
		if u.Phase != PhaseResolve {
			t.Errorf("unexpected phase during build: %v", u.Phase)
		}
		if u.Total != 2 {
			t.Errorf("expected total 2, got %d", u.Total)
		}
		resolves++
	}
	if resolves != 2 {
		t.Errorf("expected one resolve update per playlist, got %d", resolves)
	}
}

func TestSnapshotSourceListingFailureIsFatal(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		PlaylistsErr: errors.New("rate limited"),
	}

	source := &SnapshotSource{
		Catalog: catalog,
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	_, err := source.Build(context.Background(), manifest.New())
	if !errors.Is(err, shared.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestSnapshotSourceTrackFailureSkipsPlaylist(t *testing.T) {
	catalog := &internaltesting.MockCatalog{
		Playlists: []models.Playlist{
			{ID: "pl1", Name: "House"},
			{ID: "pl2", Name: "Evening"},
		},
		Tracks: map[string][]models.Track{
			"pl2": {track("t3", "Three", "C")},
		},
		TracksErr: map[string]error{
			"pl1": errors.New("temporarily unavailable"),
		},
	}

	source := &SnapshotSource{
		Catalog: catalog,
		Folders: testFolders(t, `{"": ["House", "Evening"]}`),
		UserID:  "someone",
		Logger:  shared.NewLogger(os.Stderr),
	}

	snaps, err := source.Build(context.Background(), manifest.New())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Name != "Evening" {
		t.Fatalf("expected failing playlist skipped, got %+v", snaps)
	}
}
