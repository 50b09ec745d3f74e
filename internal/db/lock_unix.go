//go:build unix

package db

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// acquireFileLockTimeout tries to acquire an exclusive flock with exponential
// backoff up to the given timeout.
func acquireFileLockTimeout(f *os.File, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 5 * time.Millisecond

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			return fmt.Errorf("flock %s: %w", f.Name(), err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout after %v waiting for write lock", timeout)
		}
		time.Sleep(backoff)
		backoff = nextBackoff(backoff)
	}
}

func releaseFileLock(f *os.File) {
	if f != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}
}
