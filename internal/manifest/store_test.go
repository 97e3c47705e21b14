package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/spotsync/internal/shared"
)

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	man, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error for missing manifest, got %v", err)
	}
	if len(man.Entries) != 0 || len(man.Playlists) != 0 {
		t.Error("expected empty manifest")
	}
	if man.Version != Version {
		t.Errorf("expected version %d, got %d", Version, man.Version)
	}
}

func TestStoreRoundtrip(t *testing.T) {
	store := NewStore(t.TempDir())

	man := New()
	man.Entries["t1"] = &Entry{
		Title:     "Song One",
		Artist:    "Artist A",
		Filename:  "Song One - Artist A.mp3",
		Status:    StatusFetched,
		Playlists: []string{"Alpha", "Rock/Beta"},
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	}
	man.Playlists["pl1"] = &PlaylistState{
		Name:   "Alpha",
		Folder: "",
		Songs:  []string{"t1"},
	}
	man.PlaylistIDs["Alpha"] = "pl1"

	if err := store.Save(man); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	entry := loaded.Entry("t1")
	if entry == nil {
		t.Fatal("expected t1 entry after roundtrip")
	}
	if entry.Status != StatusFetched || entry.Filename != "Song One - Artist A.mp3" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if len(entry.Playlists) != 2 {
		t.Errorf("expected 2 memberships, got %v", entry.Playlists)
	}
	if loaded.PlaylistIDs["Alpha"] != "pl1" {
		t.Error("expected playlist ID cache to survive roundtrip")
	}
	if state := loaded.Playlists["pl1"]; state == nil || state.Name != "Alpha" {
		t.Errorf("unexpected playlist state: %+v", state)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt manifest: %v", err)
	}

	man, err := store.Load()
	if !errors.Is(err, shared.ErrManifestCorrupt) {
		t.Fatalf("expected ErrManifestCorrupt, got %v", err)
	}
	if man == nil || len(man.Entries) != 0 {
		t.Error("expected usable empty manifest alongside the error")
	}

	// Load alone leaves the file untouched, so a dry run after a corrupt
	// load mutates nothing on disk.
	data, readErr := os.ReadFile(store.Path())
	if readErr != nil || string(data) != "{not json" {
		t.Errorf("expected corrupt manifest left in place, got %q, %v", data, readErr)
	}
	if _, statErr := os.Stat(store.Path() + ".corrupt"); !os.IsNotExist(statErr) {
		t.Error("expected no move-aside before a save")
	}

	// The first save moves the unreadable bytes aside and replaces the
	// manifest.
	if err := store.Save(man); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	moved, readErr := os.ReadFile(store.Path() + ".corrupt")
	if readErr != nil || string(moved) != "{not json" {
		t.Errorf("expected corrupt bytes preserved aside, got %q, %v", moved, readErr)
	}
	if loaded, err := store.Load(); err != nil || len(loaded.Entries) != 0 {
		t.Errorf("expected clean manifest after save, got %v", err)
	}
}

func TestStoreLoadIgnoresUnknownFields(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	payload := `{
		"version": 7,
		"future_field": {"nested": true},
		"entries": {
			"t1": {"title": "Song One", "status": "fetched", "brand_new_key": 1}
		}
	}`
	if err := os.WriteFile(store.Path(), []byte(payload), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	man, err := store.Load()
	if err != nil {
		t.Fatalf("expected forward-compatible load, got %v", err)
	}
	entry := man.Entry("t1")
	if entry == nil || entry.Status != StatusFetched {
		t.Errorf("expected t1 readable despite unknown fields, got %+v", entry)
	}
	if man.Playlists == nil || man.PlaylistIDs == nil {
		t.Error("expected sparse manifest maps initialized")
	}
}

func TestStoreSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	man := New()
	man.Entries["t1"] = &Entry{Title: "Song One", Status: StatusPending}
	if err := store.Save(man); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestApplyDelta(t *testing.T) {
	store := NewStore(t.TempDir())
	man := New()

	t.Run("upsert persists immediately", func(t *testing.T) {
		err := store.ApplyDelta(man, EntryDelta{
			Identity: "t1",
			Entry:    &Entry{Title: "Song One", Status: StatusFetched, Filename: "f.mp3"},
		})
		if err != nil {
			t.Fatalf("ApplyDelta failed: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if entry := loaded.Entry("t1"); entry == nil || entry.Status != StatusFetched {
			t.Errorf("expected persisted entry, got %+v", entry)
		}
	})

	t.Run("nil entry removes", func(t *testing.T) {
		if err := store.ApplyDelta(man, EntryDelta{Identity: "t1"}); err != nil {
			t.Fatalf("ApplyDelta failed: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.Entry("t1") != nil {
			t.Error("expected t1 removed from persisted manifest")
		}
	})
}

func TestEntryMembership(t *testing.T) {
	entry := &Entry{}

	entry.AddMember("Beta")
	entry.AddMember("Alpha")
	entry.AddMember("Beta")

	if len(entry.Playlists) != 2 {
		t.Fatalf("expected 2 members, got %v", entry.Playlists)
	}
	if entry.Playlists[0] != "Alpha" || entry.Playlists[1] != "Beta" {
		t.Errorf("expected sorted members, got %v", entry.Playlists)
	}
	if !entry.HasMember("Alpha") {
		t.Error("expected Alpha membership")
	}

	entry.RemoveMember("Alpha")
	if entry.HasMember("Alpha") {
		t.Error("expected Alpha removed")
	}
	if !entry.HasMember("Beta") {
		t.Error("expected Beta kept")
	}
}
