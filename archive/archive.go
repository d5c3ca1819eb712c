package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/splitgo/blobstore"
)

// ErrUnsafePath is returned by Extract for entries that would escape the
// destination store.
var ErrUnsafePath = errors.New("archive: unsafe entry path")

// Stats summarises an archive operation.
type Stats struct {
	Files int
	Bytes int64
}

// Options configures Write.
type Options struct {
	Codec Codec
	// ModTime is stamped on every entry. Zero means the Unix epoch, which
	// keeps archives of identical splits byte-identical.
	ModTime time.Time
}

// Write streams the named blobs of store into w as a compressed tar archive.
// Entries keep their blob names and appear in the given order.
func Write(ctx context.Context, w io.Writer, store blobstore.BlobStore, names []string, opts Options) (*Stats, error) {
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Unix(0, 0)
	}

	cw, err := opts.Codec.compressor(w)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(cw)

	stats := &Stats{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			_ = cw.Close()
			return stats, err
		}
		n, err := writeEntry(ctx, tw, store, name, modTime)
		if err != nil {
			_ = cw.Close()
			return stats, fmt.Errorf("archive: %s: %w", name, err)
		}
		stats.Files++
		stats.Bytes += n
	}

	if err := tw.Close(); err != nil {
		_ = cw.Close()
		return stats, err
	}
	if err := cw.Close(); err != nil {
		return stats, err
	}
	return stats, nil
}

func writeEntry(ctx context.Context, tw *tar.Writer, store blobstore.BlobStore, name string, modTime time.Time) (int64, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer b.Close()

	size := b.Size()
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     size,
		ModTime:  modTime,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}

	rc, err := b.ReadRange(ctx, 0, size)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	return io.Copy(tw, rc)
}

// Extract unpacks an archive produced by Write into store.
// Directories and non-regular entries are skipped.
func Extract(ctx context.Context, r io.Reader, store blobstore.BlobStore, codec Codec) (*Stats, error) {
	dr, err := codec.decompressor(r)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	tr := tar.NewReader(dr)
	stats := &Stats{}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("archive: read: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name, err := cleanName(hdr.Name)
		if err != nil {
			return stats, err
		}
		n, err := extractEntry(ctx, tr, store, name)
		if err != nil {
			return stats, fmt.Errorf("archive: %s: %w", name, err)
		}
		stats.Files++
		stats.Bytes += n
	}
}

func extractEntry(ctx context.Context, r io.Reader, store blobstore.BlobStore, name string) (int64, error) {
	w, err := store.Create(ctx, name)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, r)
	if err != nil {
		if a, ok := w.(blobstore.Aborter); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return n, err
	}
	return n, w.Close()
}

func cleanName(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return clean, nil
}
