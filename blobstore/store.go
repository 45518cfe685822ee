package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a page does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store persists named immutable pages. Put replaces a page atomically.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Open opens a page for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put writes a page atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a page. Deleting a missing page is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a page.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	io.Closer
	// Size returns the size of the page in bytes.
	Size() int64
}

// Rooted is implemented by stores backed by a local directory.
type Rooted interface {
	Root() string
}

// ReadAll reads a whole blob.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	return ReadRange(ctx, b, 0, b.Size())
}

// ReadRange reads length bytes at off. A short blob is io.ErrUnexpectedEOF.
func ReadRange(ctx context.Context, b Blob, off, length int64) ([]byte, error) {
	if off < 0 || length < 0 || off+length > b.Size() {
		return nil, fmt.Errorf("blobstore: range [%d, %d) outside blob of %d bytes: %w",
			off, off+length, b.Size(), io.ErrUnexpectedEOF)
	}
	buf := make([]byte, length)
	n, err := b.ReadAt(ctx, buf, off)
	if int64(n) == length {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// DeletePrefix removes every page whose name starts with prefix.
func DeletePrefix(ctx context.Context, s Store, prefix string) error {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
