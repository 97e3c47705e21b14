// package manifest persists sync state between runs.
//
// The manifest is the single durable record of what has been fetched and
// which playlist folders currently reference each track. It is written
// after every completed operation so an interrupted run loses only
// unflushed work.
package manifest

import (
	"sort"
	"time"
)

// Version is written into every manifest. Readers ignore unknown fields
// so newer writers stay readable by older code.
const Version = 1

// Status is the fetch lifecycle state of a manifest entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusFetched Status = "fetched"
	StatusFailed  Status = "failed"
)

// Entry records one track's cached artifact and current playlist
// membership. Filename is set iff Status is StatusFetched; whether the
// artifact actually still exists on disk is checked lazily by the
// executor, never here.
type Entry struct {
	Title      string    `json:"title"`
	Artist     string    `json:"artist,omitempty"`
	Album      string    `json:"album,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Status     Status    `json:"status"`
	Playlists  []string  `json:"playlists,omitempty"` // destination keys, e.g. "Dance/House"
	LastError  string    `json:"last_error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitzero"`
	LastSynced time.Time `json:"last_synced,omitzero"`
}

// PlaylistState is the last-known membership snapshot for one playlist.
// Songs is used only to detect membership deltas; it is not
// order-sensitive.
type PlaylistState struct {
	Name       string    `json:"name"`
	Folder     string    `json:"folder,omitempty"`
	Songs      []string  `json:"songs"`
	LastSynced time.Time `json:"last_synced,omitzero"`
}

// Manifest maps track identities to entries plus playlist membership
// snapshots. PlaylistIDs remembers name → remote ID so playlists that
// vanish from the user listing (the Unicode-name API gap) remain
// resolvable on later runs.
type Manifest struct {
	Version     int                       `json:"version"`
	Entries     map[string]*Entry         `json:"entries"`
	Playlists   map[string]*PlaylistState `json:"playlists"`
	PlaylistIDs map[string]string         `json:"playlist_ids,omitempty"`
}

// New returns an empty manifest with initialized maps.
func New() *Manifest {
	return &Manifest{
		Version:     Version,
		Entries:     map[string]*Entry{},
		Playlists:   map[string]*PlaylistState{},
		PlaylistIDs: map[string]string{},
	}
}

// normalize repairs nil maps after JSON decoding of sparse manifests.
func (m *Manifest) normalize() {
	if m.Version == 0 {
		m.Version = Version
	}
	if m.Entries == nil {
		m.Entries = map[string]*Entry{}
	}
	if m.Playlists == nil {
		m.Playlists = map[string]*PlaylistState{}
	}
	if m.PlaylistIDs == nil {
		m.PlaylistIDs = map[string]string{}
	}
}

// Entry returns the manifest entry for a track identity, or nil.
func (m *Manifest) Entry(identity string) *Entry {
	return m.Entries[identity]
}

// HasMember reports whether the entry currently lists dest as a member.
func (e *Entry) HasMember(dest string) bool {
	for _, d := range e.Playlists {
		if d == dest {
			return true
		}
	}
	return false
}

// AddMember adds dest to the entry's membership set, keeping it sorted.
func (e *Entry) AddMember(dest string) {
	if e.HasMember(dest) {
		return
	}
	e.Playlists = append(e.Playlists, dest)
	sort.Strings(e.Playlists)
}

// RemoveMember drops dest from the entry's membership set.
func (e *Entry) RemoveMember(dest string) {
	out := e.Playlists[:0]
	for _, d := range e.Playlists {
		if d != dest {
			out = append(out, d)
		}
	}
	e.Playlists = out
}
