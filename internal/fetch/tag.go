package fetch

import (
	"fmt"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/spotsync/internal/models"
)

// WriteTags writes ID3v2 title/artist/album frames onto an mp3 artifact
// so players show proper metadata regardless of which folder the file
// was materialized into.
func WriteTags(path string, track models.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open artifact for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}
