// Package pathstore persists rendered artifacts under a per-agent directory
// of the storage root. Files are write-once: a name that already exists is
// never overwritten.
package pathstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileInfo describes one stored file.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store is the filesystem port the writer depends on.
type Store interface {
	// MkdirAll creates dir and any missing parents. Existing directories are
	// not an error.
	MkdirAll(dir string) error
	// WriteFileDurable creates path exclusively and flushes it to stable
	// storage. An existing file yields an error wrapping fs.ErrExist.
	WriteFileDurable(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	// Open streams path so callers can bound how much they read.
	Open(path string) (io.ReadCloser, error)
	// List returns the regular files directly inside dir. A missing dir
	// yields no entries.
	List(dir string) ([]FileInfo, error)
}

// DiskStore is the Store backed by the local filesystem.
type DiskStore struct{}

func NewDiskStore() *DiskStore { return &DiskStore{} }

func (DiskStore) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func (DiskStore) WriteFileDurable(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return syncDir(filepath.Dir(path))
}

func (DiskStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (DiskStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (DiskStore) List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, FileInfo{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// syncDir makes a new directory entry durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return nil
}
