package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is the destination of a materialized split: images, labels and
// manifests are written as named blobs ("train/images/img_001.jpg").
//
// Implementations must be safe for concurrent use; the materializer writes
// disjoint names from several workers.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes. The blob becomes visible
	// under name when Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader over [off, off+length).
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	Sync() error
}

// Aborter is implemented by writable blobs that can discard a partial write.
type Aborter interface {
	Abort() error
}

// Locator is implemented by stores that can describe where they live
// (an absolute directory, or a bucket URI). Manifests record it as the
// dataset root.
type Locator interface {
	Location() string
}

// Location returns the store's location, or "." when it cannot tell.
func Location(s BlobStore) string {
	if l, ok := s.(Locator); ok {
		return l.Location()
	}
	return "."
}

// ReadAll reads a whole blob.
func ReadAll(ctx context.Context, s BlobStore, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if b.Size() == 0 {
		return []byte{}, nil
	}

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Exists reports whether at least one blob carries the given prefix.
func Exists(ctx context.Context, s BlobStore, prefix string) (bool, error) {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// PrefixDeleter is implemented by stores that remove many blobs in batched
// requests.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// DeletePrefix removes every blob whose name starts with prefix and returns
// the number removed. Failures are joined; the remaining blobs are still
// attempted.
func DeletePrefix(ctx context.Context, s BlobStore, prefix string) (int, error) {
	if d, ok := s.(PrefixDeleter); ok {
		return d.DeletePrefix(ctx, prefix)
	}

	names, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	var (
		n    int
		errs []error
	)
	for _, name := range names {
		if err := s.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("blobstore: delete %s: %w", name, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Key joins an object-store root prefix and a blob name. A trailing slash on
// name is kept so that listing "train/" does not match "training/".
func Key(root, name string) string {
	k := path.Join(root, name)
	if k == "." {
		return ""
	}
	if strings.HasSuffix(name, "/") && !strings.HasSuffix(k, "/") {
		k += "/"
	}
	return k
}

// ContentType returns the MIME type recorded for a blob in object storage.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".jfif", ".mpo":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	case ".tif", ".tiff", ".dng":
		return "image/tiff"
	case ".heic":
		return "image/heic"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	case ".tar":
		return "application/x-tar"
	case ".zst":
		return "application/zstd"
	default:
		return "application/octet-stream"
	}
}
