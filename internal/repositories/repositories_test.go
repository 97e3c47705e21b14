package repositories

import (
	"testing"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

func newTestRepo(t *testing.T) *TrackRepository {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewTrackRepository(db)
}

func sampleTrack(identity string) *models.PersistedTrack {
	return models.NewPersistedTrack(0, identity, models.Track{
		ID:       identity,
		Title:    "Song " + identity,
		Artist:   "Artist A",
		Album:    "Album",
		Duration: 215,
	})
}

func TestTrackRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	track := sampleTrack("t1")
	if err := repo.Create(track); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if track.ID() == "" {
		t.Error("expected generated ID")
	}

	got, err := repo.Get(track.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Identity() != "t1" || got.Title() != "Song t1" {
		t.Errorf("unexpected track: %+v", got)
	}
	if got.Sequence() == 0 {
		t.Error("expected assigned sequence")
	}
}

func TestTrackRepositoryGetByIdentity(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.Create(sampleTrack("t1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByIdentity("t1")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}
	if got.Identity() != "t1" {
		t.Errorf("unexpected identity: %s", got.Identity())
	}

	if _, err := repo.GetByIdentity("absent"); err == nil {
		t.Error("expected error for absent identity")
	}
}

func TestTrackRepositoryDuplicateIdentity(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.Create(sampleTrack("t1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(sampleTrack("t1")); err == nil {
		t.Error("expected UNIQUE constraint violation for duplicate identity")
	}
}

func TestTrackRepositoryUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)

	track := sampleTrack("t1")
	if err := repo.Create(track); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("update", func(t *testing.T) {
		updated := models.NewPersistedTrack(track.Sequence(), "t1", models.Track{
			ID:     "t1",
			Title:  "Renamed Song",
			Artist: "Artist A",
		})
		updated.SetID(track.ID())

		if err := repo.Update(updated); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title() != "Renamed Song" {
			t.Errorf("expected updated title, got %s", got.Title())
		}
	})

	t.Run("soft delete", func(t *testing.T) {
		if err := repo.Delete(track.ID()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get(track.ID()); err == nil {
			t.Error("expected soft-deleted track hidden from Get")
		}
		if err := repo.Delete(track.ID()); err == nil {
			t.Error("expected error deleting an already-deleted track")
		}
	})
}

func TestTrackRepositoryList(t *testing.T) {
	repo := newTestRepo(t)

	for _, id := range []string{"t1", "t2", "t3"} {
		if err := repo.Create(sampleTrack(id)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	tracks, err := repo.List(map[string]any{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(tracks))
	}
	for i := 1; i < len(tracks); i++ {
		if tracks[i-1].Sequence() > tracks[i].Sequence() {
			t.Error("expected tracks ordered by sequence")
		}
	}

	filtered, err := repo.List(map[string]any{"artist": "Nobody"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(filtered) != 0 {
		t.Errorf("expected no tracks for unknown artist, got %d", len(filtered))
	}
}

func TestTrackCacheAdapter(t *testing.T) {
	repo := newTestRepo(t)
	adapter := NewTrackCacheAdapter(repo)

	track := models.Track{ID: "t1", Title: "Song One", Artist: "Artist A"}

	if err := adapter.CacheTrack("t1", track); err != nil {
		t.Fatalf("CacheTrack failed: %v", err)
	}
	if err := adapter.CacheTrack("t1", track); err != nil {
		t.Errorf("duplicate CacheTrack should be a no-op, got %v", err)
	}

	got, err := repo.GetByIdentity("t1")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}
	if got.Title() != "Song One" {
		t.Errorf("unexpected cached track: %+v", got)
	}
}
