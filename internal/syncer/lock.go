package syncer

import (
	"fmt"
	"path/filepath"

	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/gofrs/flock"
)

// LockFilename is the advisory lock file's name inside the output
// directory.
const LockFilename = ".sync.lock"

// Lock guards an output directory against concurrent sync runs.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the advisory lock for an output directory without
// blocking. When another process holds it, [shared.ErrLocked] is
// returned and the caller should exit.
func AcquireLock(outputDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(outputDir, LockFilename))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another sync is running on %s", shared.ErrLocked, outputDir)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call once at the end of a run.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
