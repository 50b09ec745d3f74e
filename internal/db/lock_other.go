//go:build !unix && !windows

package db

import (
	"os"
	"time"
)

// Platforms without advisory locks rely on SQLite's busy handling alone.
func acquireFileLockTimeout(f *os.File, timeout time.Duration) error { return nil }

func releaseFileLock(f *os.File) {}
