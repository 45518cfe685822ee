// Package blobstore stores the pages of disk-backed data frames.
//
// A [Store] holds named immutable pages. Frames write one page per sealed
// slice with Put and read it back through Open and a [Blob].
//
// # Built-in Implementations
//
//   - [LocalStore]: a directory on the local filesystem (the default)
//   - [MemoryStore]: in-process pages, for tests
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// Implement Store to page frames into another backend:
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
