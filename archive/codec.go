package archive

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is the compression applied to the tar stream.
type Codec uint8

const (
	// CodecNone writes a plain tar stream.
	CodecNone Codec = 0
	// CodecLZ4 uses the LZ4 frame format (fast).
	CodecLZ4 Codec = 1
	// CodecZstd uses Zstandard (better ratio).
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Extension returns the conventional file suffix, e.g. ".tar.zst".
func (c Codec) Extension() string {
	switch c {
	case CodecLZ4:
		return ".tar.lz4"
	case CodecZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// ParseCodec parses a codec name. The empty string means CodecZstd.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zstd", "zst":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	case "none", "tar":
		return CodecNone, nil
	default:
		return 0, fmt.Errorf("archive: unknown codec %q", name)
	}
}

// DetectCodec guesses the codec from a file name.
func DetectCodec(filename string) Codec {
	switch {
	case strings.HasSuffix(filename, ".zst"), strings.HasSuffix(filename, ".zstd"):
		return CodecZstd
	case strings.HasSuffix(filename, ".lz4"):
		return CodecLZ4
	default:
		return CodecNone
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (c Codec) compressor(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CodecNone:
		return nopWriteCloser{w}, nil
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	case CodecZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	default:
		return nil, fmt.Errorf("archive: unknown codec %s", c)
	}
}

func (c Codec) decompressor(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CodecNone:
		return io.NopCloser(r), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("archive: unknown codec %s", c)
	}
}
