// Package fsutil abstracts file creation so report writers can be tested
// against an in-memory filesystem.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// FileSystem is the write-side surface report writers need.
type FileSystem interface {
	Create(name string) (io.WriteCloser, error)
}

// OSFileSystem writes to the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// MemoryFileSystem keeps created files in memory. A file's contents become
// readable once it is closed.
type MemoryFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string][]byte)}
}

func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	return &memoryFile{fs: m, name: name}, nil
}

// ReadFile returns the contents of a previously created and closed file.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

type memoryFile struct {
	fs   *MemoryFileSystem
	name string
	buf  []byte
}

func (f *memoryFile) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *memoryFile) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.fs.files[f.name] = f.buf
	return nil
}
