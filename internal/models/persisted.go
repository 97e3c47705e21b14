package models

import (
	"fmt"
	"time"
)

// PersistedTrack is a database-backed record of track metadata keyed by
// the remote track identity. It lets the cache reconciler regenerate
// filenames without re-querying the remote catalog.
type PersistedTrack struct {
	id        string
	sequence  int
	identity  string
	track     Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a PersistedTrack from a track DTO.
func NewPersistedTrack(sequence int, identity string, track Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		identity:  identity,
		track:     track,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string           { return t.id }
func (t *PersistedTrack) Sequence() int        { return t.sequence }
func (t *PersistedTrack) Identity() string     { return t.identity }
func (t *PersistedTrack) Title() string        { return t.track.Title }
func (t *PersistedTrack) Artist() string       { return t.track.Artist }
func (t *PersistedTrack) Album() string        { return t.track.Album }
func (t *PersistedTrack) Duration() int        { return t.track.Duration }
func (t *PersistedTrack) Track() Track         { return t.track }
func (t *PersistedTrack) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTrack) SetID(id string)            { t.id = id }
func (t *PersistedTrack) SetUpdatedAt(ts time.Time)  { t.updatedAt = ts }
func (t *PersistedTrack) SetCreatedAt(ts time.Time)  { t.createdAt = ts }
func (t *PersistedTrack) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }

// Validate checks that the record carries the fields the tracks table requires.
func (t *PersistedTrack) Validate() error {
	if t.identity == "" {
		return fmt.Errorf("track identity is required")
	}
	if t.track.Title == "" {
		return fmt.Errorf("track title is required")
	}
	return nil
}
