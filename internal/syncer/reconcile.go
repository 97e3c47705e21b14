package syncer

import (
	"sort"
	"time"

	"github.com/desertthunder/spotsync/internal/manifest"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// ReconcileOpts caps the amount of work a plan may contain. Zero means
// unlimited.
type ReconcileOpts struct {
	Limit          int    // per-playlist track cap, applied before diffing
	LimitPlaylists int    // first N snapshots in caller order
	AudioFormat    string // artifact extension for new fetches, empty means mp3
}

// FetchOp fetches one track's artifact into the cache. At most one
// fetch per identity appears in a plan regardless of how many playlists
// reference the track.
type FetchOp struct {
	Identity string
	Track    models.Track
	Filename string
}

// DestOp links or removes one cached artifact in a destination folder.
type DestOp struct {
	Identity string
	Dest     string
	Filename string
}

// PruneOp deletes a cached artifact whose projected membership is empty
// once the plan has been applied.
type PruneOp struct {
	Identity string
	Filename string
}

// PlaylistUpdate is the post-sync membership state to persist for one
// reconciled playlist.
type PlaylistUpdate struct {
	PlaylistID string
	State      manifest.PlaylistState
}

// Plan is the ordered work a sync run will perform. Prunes always run
// last so a crash mid-run can strand an unreferenced artifact but never
// delete one that is still referenced.
type Plan struct {
	Fetches      []FetchOp
	Materializes []DestOp
	Removes      []DestOp
	Prunes       []PruneOp
	Playlists    []PlaylistUpdate
}

// Empty reports whether the plan contains no operations.
func (p *Plan) Empty() bool {
	return len(p.Fetches) == 0 && len(p.Materializes) == 0 &&
		len(p.Removes) == 0 && len(p.Prunes) == 0
}

// Ops returns the total operation count, excluding playlist state
// updates.
func (p *Plan) Ops() int {
	return len(p.Fetches) + len(p.Materializes) + len(p.Removes) + len(p.Prunes)
}

// Reconcile diffs fresh playlist snapshots against the manifest and
// produces a plan. It reads the manifest and touches nothing else: no
// disk, no network. Running the same plan to completion and reconciling
// again yields an empty plan.
//
// Playlists absent from snaps are left untouched; their entries keep
// their membership and are never pruned on this run.
func Reconcile(man *manifest.Manifest, snaps []Snapshot, opts ReconcileOpts) *Plan {
	if opts.LimitPlaylists > 0 && opts.LimitPlaylists < len(snaps) {
		snaps = snaps[:opts.LimitPlaylists]
	}

	plan := &Plan{}
	now := time.Now().UTC()

	// Projected membership after the plan runs, seeded from the current
	// entries. Adds and removes below mutate the projection; identities
	// that end empty are pruned.
	projected := make(map[string]map[string]bool, len(man.Entries))
	for identity, entry := range man.Entries {
		members := make(map[string]bool, len(entry.Playlists))
		for _, dest := range entry.Playlists {
			members[dest] = true
		}
		projected[identity] = members
	}

	fetching := map[string]bool{}

	for _, snap := range snaps {
		tracks := snap.Tracks
		if opts.Limit > 0 && opts.Limit < len(tracks) {
			tracks = tracks[:opts.Limit]
		}

		curr := make(map[string]bool, len(tracks))
		songs := make([]string, 0, len(tracks))
		for _, track := range tracks {
			if curr[track.ID] {
				continue
			}
			curr[track.ID] = true
			songs = append(songs, track.ID)

			entry := man.Entry(track.ID)
			filename := entryFilename(entry, track, opts.AudioFormat)

			if entry == nil || entry.Status != manifest.StatusFetched {
				if !fetching[track.ID] {
					fetching[track.ID] = true
					plan.Fetches = append(plan.Fetches, FetchOp{
						Identity: track.ID,
						Track:    track,
						Filename: filename,
					})
				}
			}

			members := projected[track.ID]
			if members == nil {
				members = map[string]bool{}
				projected[track.ID] = members
			}
			if !members[snap.Dest] {
				members[snap.Dest] = true
				plan.Materializes = append(plan.Materializes, DestOp{
					Identity: track.ID,
					Dest:     snap.Dest,
					Filename: filename,
				})
			}
		}

		// Departures are diffed against the previously recorded state,
		// under the destination the playlist occupied at the time.
		if prev := man.Playlists[snap.PlaylistID]; prev != nil {
			prevDest := DestKey(prev.Folder, prev.Name)
			for _, identity := range prev.Songs {
				left := !curr[identity]
				moved := curr[identity] && prevDest != snap.Dest
				if !left && !moved {
					continue
				}
				entry := man.Entry(identity)
				if entry == nil || !projected[identity][prevDest] {
					continue
				}
				delete(projected[identity], prevDest)
				plan.Removes = append(plan.Removes, DestOp{
					Identity: identity,
					Dest:     prevDest,
					Filename: entryFilename(entry, models.Track{}, opts.AudioFormat),
				})
			}
		}

		plan.Playlists = append(plan.Playlists, PlaylistUpdate{
			PlaylistID: snap.PlaylistID,
			State: manifest.PlaylistState{
				Name:       snap.Name,
				Folder:     snap.Folder,
				Songs:      songs,
				LastSynced: now,
			},
		})
	}

	// Anything tracked whose projected membership ended up empty has no
	// referencing playlist left and gets pruned.
	var pruned []string
	for identity, members := range projected {
		if len(members) == 0 && man.Entry(identity) != nil {
			pruned = append(pruned, identity)
		}
	}
	sort.Strings(pruned)
	for _, identity := range pruned {
		plan.Prunes = append(plan.Prunes, PruneOp{
			Identity: identity,
			Filename: entryFilename(man.Entry(identity), models.Track{}, opts.AudioFormat),
		})
	}

	return plan
}

// entryFilename prefers the filename already recorded for an entry and
// falls back to deriving one from the track metadata.
func entryFilename(entry *manifest.Entry, track models.Track, format string) string {
	if entry != nil && entry.Filename != "" {
		return entry.Filename
	}
	if entry != nil && entry.Title != "" {
		return shared.TrackFilename(entry.Title, entry.Artist, format)
	}
	return shared.TrackFilename(track.Title, track.Artist, format)
}
