package repositories

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spotsync/internal/models"
)

// TrackCacheAdapter implements syncer.TrackCacher using TrackRepository.
//
// Duplicate identities are silently ignored (UNIQUE constraint
// violations), so re-fetching a track never fails the run.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// CacheTrack records track metadata for a fetched artifact.
// Returns nil if the track is already recorded (deduplication).
func (a *TrackCacheAdapter) CacheTrack(identity string, track models.Track) error {
	existing, err := a.repo.GetByIdentity(identity)
	if err == nil && existing != nil {
		return nil
	}

	persisted := models.NewPersistedTrack(0, identity, track)

	err = a.repo.Create(persisted)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}

	return nil
}
