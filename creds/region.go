package creds

import (
	"fmt"
	"os"
	"sync"
)

// MemRegion is an in-memory Region, used by tests and by platforms without
// a persistent credential partition.
type MemRegion struct {
	mu  sync.Mutex
	buf []byte
}

var _ Region = (*MemRegion)(nil)

// NewMemRegion creates a zeroed in-memory region of RegionSize bytes.
func NewMemRegion() *MemRegion {
	return &MemRegion{buf: make([]byte, RegionSize)}
}

func (m *MemRegion) ReadAt(off int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off+len(p) > len(m.buf) {
		return fmt.Errorf("read [%d,%d) outside region of %d bytes", off, off+len(p), len(m.buf))
	}
	copy(p, m.buf[off:])
	return nil
}

func (m *MemRegion) WriteAt(off int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off+len(p) > len(m.buf) {
		return fmt.Errorf("write [%d,%d) outside region of %d bytes", off, off+len(p), len(m.buf))
	}
	copy(m.buf[off:], p)
	return nil
}

// FileRegion is a Region backed by a fixed-size file, standing in for the
// device's flash credential partition. Writes are synced before returning.
type FileRegion struct {
	mu   sync.Mutex
	file *os.File
}

var _ Region = (*FileRegion)(nil)

// OpenFileRegion opens (creating if needed) a region file of RegionSize bytes.
func OpenFileRegion(path string) (*FileRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening region file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat region file: %w", err)
	}
	if info.Size() < RegionSize {
		if err := f.Truncate(RegionSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("sizing region file: %w", err)
		}
	}
	return &FileRegion{file: f}, nil
}

func (r *FileRegion) ReadAt(off int, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.ReadAt(p, int64(off)); err != nil {
		return fmt.Errorf("region read at %d: %w", off, err)
	}
	return nil
}

func (r *FileRegion) WriteAt(off int, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.WriteAt(p, int64(off)); err != nil {
		return fmt.Errorf("region write at %d: %w", off, err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("region sync: %w", err)
	}
	return nil
}

// Close closes the backing file.
func (r *FileRegion) Close() error {
	return r.file.Close()
}
