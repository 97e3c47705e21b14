package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// FolderMapping projects playlist names into destination folders.
//
// It is loaded from a JSON object mapping folder name to a list of
// playlist names. Insertion order of the JSON object is preserved so
// that --limit-playlists style caps take the first N playlists as the
// operator wrote them, not in map-iteration order.
type FolderMapping struct {
	byPlaylist map[string]string
	playlists  []string
}

// LoadFolders reads a folders file and returns the parsed mapping.
// A missing path returns an empty mapping and an error for the caller
// to report.
func LoadFolders(path string) (*FolderMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &FolderMapping{byPlaylist: map[string]string{}}, fmt.Errorf("folders file not found: %w", err)
	}
	return ParseFolders(data)
}

// ParseFolders decodes the folder → playlist-names JSON object, keeping
// key order. Duplicate playlist names keep their first folder.
func ParseFolders(data []byte) (*FolderMapping, error) {
	m := &FolderMapping{byPlaylist: map[string]string{}}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return m, fmt.Errorf("%w: failed to parse folders file: %v", ErrInvalidConfig, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return m, fmt.Errorf("%w: folders file must be a JSON object", ErrInvalidConfig)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return m, fmt.Errorf("%w: failed to parse folders file: %v", ErrInvalidConfig, err)
		}
		folder, ok := keyTok.(string)
		if !ok {
			return m, fmt.Errorf("%w: folders file keys must be strings", ErrInvalidConfig)
		}

		var names []string
		if err := dec.Decode(&names); err != nil {
			return m, fmt.Errorf("%w: folder %q must map to a list of playlist names: %v", ErrInvalidConfig, folder, err)
		}

		for _, name := range names {
			name = trimJSONSuffix(name)
			if _, seen := m.byPlaylist[name]; seen {
				continue
			}
			m.byPlaylist[name] = folder
			m.playlists = append(m.playlists, name)
		}
	}

	return m, nil
}

// Playlists returns all playlist names in the order they appear in the
// folders file.
func (m *FolderMapping) Playlists() []string {
	return m.playlists
}

// Folder returns the folder configured for a playlist name, or "" when
// the playlist maps directly under the output directory.
func (m *FolderMapping) Folder(playlist string) string {
	return m.byPlaylist[playlist]
}

// Len returns the number of mapped playlists.
func (m *FolderMapping) Len() int {
	return len(m.playlists)
}

// trimJSONSuffix strips a legacy ".json" suffix from playlist names,
// kept for compatibility with older folders files that listed export
// filenames instead of playlist names.
func trimJSONSuffix(name string) string {
	if len(name) > 5 && name[len(name)-5:] == ".json" {
		return name[:len(name)-5]
	}
	return name
}
