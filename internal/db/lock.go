package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcus/proj/internal/workdir"
)

const (
	lockFile       = "db.lock"
	defaultTimeout = 2 * time.Second
)

// writeLocker serializes writers across processes with an advisory lock on
// .tracking/db.lock. SQLite's own locking still guards the file itself.
type writeLocker struct {
	path string
	f    *os.File
}

func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{path: filepath.Join(baseDir, workdir.TrackingDir, lockFile)}
}

func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open write lock: %w", err)
	}
	if err := acquireFileLockTimeout(f, timeout); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}
	l.f = f
	return nil
}

func (l *writeLocker) release() {
	if l.f == nil {
		return
	}
	releaseFileLock(l.f)
	l.f.Close()
	l.f = nil
}

// nextBackoff doubles d up to 50ms
func nextBackoff(d time.Duration) time.Duration {
	const maxBackoff = 50 * time.Millisecond
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
