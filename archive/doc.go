// Package archive exports a materialized split as a single compressed tar
// file and unpacks it again.
//
//	f, _ := os.Create("dataset.tar.zst")
//	stats, err := archive.Write(ctx, f, store, names, archive.Options{Codec: archive.CodecZstd})
//
// Supported codecs are Zstandard (klauspost/compress), LZ4 (pierrec/lz4) and
// plain tar.
package archive
