// Package fs provides filesystem abstractions for testability and fault injection.
//
// The corpus reader (label index builder) and the local blob store go through
// [FileSystem] rather than the os package directly:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: open, remove, rename, stat, mkdir and readdir
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [AferoFS]: adapter for any afero.Fs (in-memory corpora in tests)
//   - [FaultyFS]: fault injection wrapper (failed opens, reads, writes,
//     directory scans and removals)
//
// # Usage
//
//	data, err := fs.ReadFile(fs.Default, "/data/all_labels/img_001.txt")
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("img_007", fs.Fault{FailOnOpen: true})
//
// Operations take no context.Context: local file operations are not
// interruptible at the syscall level. Slow remote destinations go through
// the blobstore package, which does take a context.
package fs
