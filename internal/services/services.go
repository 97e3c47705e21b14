// package services defines interface Catalog for remote playlist providers
//
// Spotify is the only production implementation; tests inject fakes.
package services

import (
	"context"

	"github.com/desertthunder/spotsync/internal/models"
)

// Catalog is the remote source of truth for playlist membership.
//
// The remote side is always authoritative: the sync engine never pushes
// changes back through this interface.
type Catalog interface {
	// Authenticate performs API authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context) error

	// ListUserPlaylists retrieves all playlists owned by a user.
	//
	// Known limitation: playlists with certain Unicode characters in
	// their names may be missing from the listing. Callers must treat a
	// configured playlist that is absent here as "cannot resolve yet",
	// never as removed.
	ListUserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error)

	// ListPlaylistTracks retrieves the ordered tracks of a playlist.
	ListPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
