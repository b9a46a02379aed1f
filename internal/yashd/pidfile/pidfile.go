// Package pidfile enforces yashd's single-instance rule (§6) with an
// exclusively-locked PID file. The lock is taken with unix.Flock, following
// the raw-syscall style the rest of this codebase's teacher uses for
// kernel-facing operations (internal/device, internal/fsnotify).
package pidfile

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// File represents a held PID-file lock. Release unlocks and removes it.
type File struct {
	f *os.File
}

// Acquire opens path, creating it if necessary, and takes an exclusive,
// non-blocking flock on it. If another process already holds the lock,
// Acquire returns an error identifying the conflict instead of blocking,
// matching §6: "Only one daemon instance may run."
func Acquire(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open pid file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("yashd already running (lock %s): %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate pid file %s: %w", path, err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pid file %s: %w", path, err)
	}

	return &File{f: f}, nil
}

// Release unlocks and removes the PID file. It is safe to call once, at
// process shutdown.
func (pf *File) Release(path string) error {
	if err := unix.Flock(int(pf.f.Fd()), unix.LOCK_UN); err != nil {
		pf.f.Close()
		return fmt.Errorf("unlock pid file %s: %w", path, err)
	}
	if err := pf.f.Close(); err != nil {
		return fmt.Errorf("close pid file %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove pid file %s: %w", path, err)
	}
	return nil
}
