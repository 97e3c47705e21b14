package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyPlaylists lists the configured user's playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	catalog, err := r.resolveCatalog(config)
	if err != nil {
		return err
	}
	if err := catalog.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.logger.Infof("listing playlists for user %s", config.Credentials.Spotify.UserID)

	playlists, err := catalog.ListUserPlaylists(ctx, config.Credentials.Spotify.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, p.Name, p.TrackCount)
	}

	return nil
}

// SpotifyTracks lists the tracks of one playlist.
func (r *Runner) SpotifyTracks(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	playlistID := cmd.String("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	catalog, err := r.resolveCatalog(config)
	if err != nil {
		return err
	}
	if err := catalog.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	tracks, err := catalog.ListPlaylistTracks(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist tracks: %w", err)
	}

	if useJSON {
		return r.writeJSON(tracks, pretty)
	}

	r.writePlain("Found %d tracks:\n\n", len(tracks))
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, t.Artist, t.Title)
	}

	return nil
}

// spotifyCommand handles direct catalog queries
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "spotify",
		Usage: "Query the Spotify catalog directly",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List the configured user's playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to show",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "tracks",
				Usage: "List the tracks of a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SpotifyTracks,
			},
		},
	}
}
