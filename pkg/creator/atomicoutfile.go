// Package creator implements BasicCreator, the orchestration layer that
// turns a stream of add_content/add_entry calls into a finished set of
// Jubako packs written atomically to disk.
package creator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// AtomicOutFile writes to a temporary file beside its final destination
// and only renames it into place on Finalize, so a reader never observes a
// half-written pack and a crash mid-write leaves the previous file (if
// any) untouched. An advisory lock on the destination path is held for
// the lifetime of the writer to keep two concurrent creators from
// finalizing onto the same path.
type AtomicOutFile struct {
	finalPath string
	tmp       *os.File
	lock      *flock.Flock
	written   bool
}

// NewAtomicOutFile creates the temporary file and acquires the advisory
// lock. The caller writes through the returned *AtomicOutFile and must
// call either Finalize or Cancel exactly once.
func NewAtomicOutFile(finalPath string) (*AtomicOutFile, error) {
	dir := filepath.Dir(finalPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(finalPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creator: create temp file for %s: %w", finalPath, err)
	}

	lock := flock.New(finalPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("creator: lock %s: %w", finalPath, err)
	}
	if !locked {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("creator: %s is locked by another creator", finalPath)
	}

	return &AtomicOutFile{finalPath: finalPath, tmp: tmp, lock: lock}, nil
}

// Write appends to the temporary file.
func (f *AtomicOutFile) Write(p []byte) (int, error) {
	f.written = true
	return f.tmp.Write(p)
}

// Finalize flushes and closes the temporary file, renames it over
// finalPath, and releases the lock.
func (f *AtomicOutFile) Finalize() error {
	defer f.cleanupLock()
	if err := f.tmp.Sync(); err != nil {
		return fmt.Errorf("creator: sync %s: %w", f.tmp.Name(), err)
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("creator: close %s: %w", f.tmp.Name(), err)
	}
	if err := os.Rename(f.tmp.Name(), f.finalPath); err != nil {
		return fmt.Errorf("creator: rename %s to %s: %w", f.tmp.Name(), f.finalPath, err)
	}
	return nil
}

// Cancel discards the temporary file without touching finalPath. Safe to
// call even if nothing was written.
func (f *AtomicOutFile) Cancel() error {
	defer f.cleanupLock()
	f.tmp.Close()
	return os.Remove(f.tmp.Name())
}

func (f *AtomicOutFile) cleanupLock() {
	f.lock.Unlock()
	os.Remove(f.lock.Path())
}
