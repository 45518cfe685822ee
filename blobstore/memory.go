package blobstore

import (
	"context"
	"io"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps pages in process memory. It is safe for concurrent use.
type MemoryStore struct {
	blobs *xsync.MapOf[string, []byte]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: xsync.NewMapOf[string, []byte]()}
}

// Open opens a page for reading.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	data, ok := m.blobs.Load(name)
	if !ok {
		return nil, ErrNotFound
	}
	return &memoryBlob{data: data}, nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.blobs.Store(name, append([]byte(nil), data...))
	return nil
}

// Delete removes a page.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.blobs.Delete(name)
	return nil
}

// List returns the pages whose name starts with prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	m.blobs.Range(func(name string, _ []byte) bool {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return true
	})
	return names, nil
}

// Len returns the number of stored pages.
func (m *MemoryStore) Len() int { return m.blobs.Size() }

// Corrupt flips one byte of a stored page. It exists for tests of page
// checksums and reports whether the page existed.
func (m *MemoryStore) Corrupt(name string, off int) bool {
	data, ok := m.blobs.Load(name)
	if !ok || off < 0 || off >= len(data) {
		return false
	}
	c := append([]byte(nil), data...)
	c[off] ^= 0xff
	m.blobs.Store(name, c)
	return true
}

// memoryBlob reads a stored page. Pages are never mutated in place, so
// the slice can be shared.
type memoryBlob struct {
	data []byte
}

func (b *memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *memoryBlob) Close() error { return nil }

func (b *memoryBlob) Size() int64 { return int64(len(b.data)) }
