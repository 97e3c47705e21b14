package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/spotsync/internal/shared"
)

// Filename is the manifest's name inside the output directory.
const Filename = ".sync_manifest.json"

// Store reads and writes the manifest under a fixed output directory.
//
// Save is atomic (write to temp, then rename) so a crash mid-save never
// leaves a corrupt or half-written manifest behind. The store assumes a
// single writer; the executor serializes all mutations.
type Store struct {
	dir     string
	corrupt bool
}

// NewStore creates a Store rooted at the output directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the manifest file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, Filename)
}

// Load reads the manifest, returning an empty manifest when none exists.
//
// An unreadable manifest is left in place and an empty manifest is
// returned together with a [shared.ErrManifestCorrupt] error the caller
// surfaces to the operator. The first Save moves the unreadable file
// aside to <name>.corrupt, so a load-only run (a dry run) touches
// nothing. Starting over causes a full re-fetch but never loses
// remote-side data.
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		s.corrupt = true
		return New(), fmt.Errorf("%w: %v", shared.ErrManifestCorrupt, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		s.corrupt = true
		return New(), fmt.Errorf("%w: %v (will be moved aside to %s)", shared.ErrManifestCorrupt, err, s.Path()+".corrupt")
	}

	m.normalize()
	return &m, nil
}

// Save atomically persists the manifest. A corrupt manifest found by
// Load is moved aside here, before the replacement lands, so its bytes
// survive for inspection.
func (s *Store) Save(m *Manifest) error {
	if s.corrupt {
		if err := os.Rename(s.Path(), s.Path()+".corrupt"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to move corrupt manifest aside: %w", err)
		}
		s.corrupt = false
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, Filename+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	return nil
}

// EntryDelta describes a single-entry update. A nil Entry removes the
// identity from the manifest.
type EntryDelta struct {
	Identity string
	Entry    *Entry
}

// ApplyDelta updates one entry and persists the manifest. It is called
// after every completed operation so partial runs are resumable.
func (s *Store) ApplyDelta(m *Manifest, d EntryDelta) error {
	if d.Entry == nil {
		delete(m.Entries, d.Identity)
	} else {
		m.Entries[d.Identity] = d.Entry
	}
	return s.Save(m)
}
