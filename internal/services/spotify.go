// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 50
	trackPageSize    = 100

	// Spotify's public rate guidance is roughly 180 requests/minute.
	requestsPerSecond = 3
)

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Tracks simplePlaylistTrack `json:"tracks"`
	URI    string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of playlist tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyCatalog implements the Catalog interface for Spotify API
// interactions. Authentication uses the OAuth2 client-credentials flow:
// mirroring public playlist membership needs no user consent.
type SpotifyCatalog struct {
	config     *clientcredentials.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyCatalog creates a new Spotify catalog with the given credentials.
func NewSpotifyCatalog(clientID, clientSecret string) (*SpotifyCatalog, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return &SpotifyCatalog{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL: spotifyBaseURL,
	}, nil
}

// Authenticate obtains a client-credentials token source. The returned
// client refreshes tokens transparently.
func (s *SpotifyCatalog) Authenticate(ctx context.Context) error {
	if _, err := s.config.Token(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	s.httpClient = s.config.Client(ctx)
	return nil
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated, rate-limited GET against the Spotify API.
func (s *SpotifyCatalog) doRequest(ctx context.Context, endpoint string, result interface{}) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: status 404", shared.ErrPlaylistNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API error: status %d", shared.ErrCatalogUnavailable, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserPlaylists retrieves one page of a user's playlists.
func (s *SpotifyCatalog) UserPlaylists(ctx context.Context, userID string, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > playlistPageSize {
		limit = playlistPageSize
	}

	endpoint := fmt.Sprintf("/users/%s/playlists?limit=%d&offset=%d", userID, limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// PlaylistTracks retrieves one page of a playlist's tracks.
func (s *SpotifyCatalog) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 || limit > trackPageSize {
		limit = trackPageSize
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Catalog interface implementation

// ListUserPlaylists retrieves all playlists owned by a user, following pagination.
func (s *SpotifyCatalog) ListUserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, userID, playlistPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			if sp.ID == "" {
				continue
			}
			all = append(all, models.Playlist{
				ID:         sp.ID,
				Name:       sp.Name,
				TrackCount: sp.Tracks.Total,
			})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return all, nil
}

// ListPlaylistTracks retrieves the ordered tracks of a playlist, following pagination.
func (s *SpotifyCatalog) ListPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		response, err := s.PlaylistTracks(ctx, playlistID, trackPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			// Local files and removed tracks come back with empty IDs.
			if item.Track.ID == "" {
				continue
			}

			track := models.Track{
				ID:       item.Track.ID,
				Title:    item.Track.Name,
				Album:    item.Track.Album.Name,
				Duration: item.Track.DurationMS / 1000,
			}
			if len(item.Track.Artists) > 0 {
				track.Artist = item.Track.Artists[0].Name
			}
			tracks = append(tracks, track)
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return tracks, nil
}
