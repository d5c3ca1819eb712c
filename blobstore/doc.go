// Package blobstore provides the storage abstraction a split is materialized
// into.
//
// A split tree is a flat namespace of blobs:
//
//	train/images/img_001.jpg
//	train/labels/img_001.txt
//	valid/images/...
//	data.yaml
//
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic per-file writes (temp file + rename)
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with multipart uploads
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that know their location (a directory or bucket URI) also implement
// Locator; manifests use it as the dataset root.
package blobstore
