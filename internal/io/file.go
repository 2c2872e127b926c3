// Package ioutils provides file system and raster utilities for tilebatch.
//
// This package contains functions for:
//   - Atomic file writing (temp file + sync + rename)
//   - Existence checks
//   - Directory creation
//
// A file written through this package is either fully present or absent.
// The skip-existing policy relies on that: a crashed download never leaves
// a file that looks complete.
package ioutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists reports whether a regular file exists at path.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// AtomicFile is a file that appears at its final path only on Commit.
//
// Example:
//
//	f, err := CreateAtomic("/tiles/macro_x+0_y+0/elevation_0_0.tif")
//	if err != nil {
//	    return err
//	}
//	defer f.Abort()
//	if _, err := io.Copy(f, body); err != nil {
//	    return err
//	}
//	return f.Commit()
type AtomicFile struct {
	path string
	tmp  *os.File
	done bool
}

// CreateAtomic opens a temporary file next to path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".part-*")
	if err != nil {
		return nil, err
	}
	return &AtomicFile{path: path, tmp: tmp}, nil
}

// Write implements io.Writer.
func (f *AtomicFile) Write(p []byte) (int, error) {
	return f.tmp.Write(p)
}

// Commit syncs the temporary file and renames it onto the final path.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("ioutils: atomic file already finished")
	}
	f.done = true

	if err := f.tmp.Chmod(0644); err != nil {
		f.cleanup()
		return err
	}
	if err := f.tmp.Sync(); err != nil {
		f.cleanup()
		return err
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return err
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return err
	}
	return syncDir(filepath.Dir(f.path))
}

// Abort discards the temporary file. It is a no-op after Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.cleanup()
}

func (f *AtomicFile) cleanup() {
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}

// WriteFileAtomic writes data to path so that readers observe either the
// previous content or the new content, never a partial write.
func WriteFileAtomic(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := CreateAtomic(path)
	if err != nil {
		return err
	}
	defer f.Abort()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Commit()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse fsync on directories; the rename has already happened.
	_ = d.Sync()
	return nil
}
