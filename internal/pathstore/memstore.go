package pathstore

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// MemStore is an in-memory Store with the same exclusive-create semantics as
// DiskStore.
type MemStore struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string]memFile

	// FailWrite, when set, is consulted before every write. A non-nil
	// return aborts that write.
	FailWrite func(path string) error
}

type memFile struct {
	data    []byte
	modTime time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		dirs:  make(map[string]bool),
		files: make(map[string]memFile),
	}
}

func (m *MemStore) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, isFile := m.files[d]; isFile {
			return &fs.PathError{Op: "mkdir", Path: d, Err: fs.ErrExist}
		}
		m.dirs[d] = true
		if filepath.Dir(d) == d {
			return nil
		}
	}
}

func (m *MemStore) WriteFileDurable(path string, data []byte) error {
	path = filepath.Clean(path)
	if m.FailWrite != nil {
		if err := m.FailWrite(path); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[filepath.Dir(path)] {
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if _, ok := m.files[path]; ok || m.dirs[path] {
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrExist}
	}
	m.files[path] = memFile{data: append([]byte(nil), data...), modTime: time.Now()}
	return nil
}

func (m *MemStore) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), f.data...), nil
}

func (m *MemStore) Open(path string) (io.ReadCloser, error) {
	data, err := m.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemStore) List(dir string) ([]FileInfo, error) {
	dir = filepath.Clean(dir)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FileInfo
	for p, f := range m.files {
		if filepath.Dir(p) != dir {
			continue
		}
		out = append(out, FileInfo{
			Name:    filepath.Base(p),
			Path:    p,
			Size:    int64(len(f.data)),
			ModTime: f.modTime,
		})
	}
	return out, nil
}

// Paths returns every stored file path, for assertions.
func (m *MemStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	return out
}
