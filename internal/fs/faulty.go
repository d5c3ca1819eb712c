package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error a Fault returns when it carries none of its own.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes how operations on matching paths fail.
type Fault struct {
	FailOnOpen    bool
	FailOnRead    bool
	FailOnReadDir bool
	FailOnSync    bool
	FailOnClose   bool
	FailOnRemove  bool
	// FailAfterBytes fails writes once a single file has received this many
	// bytes. Negative disables the limit.
	FailAfterBytes int64
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	pattern string
	fault   Fault
}

// FaultyFS wraps a FileSystem and injects failures for paths containing a
// rule's pattern. When several rules match, the last added wins.
type FaultyFS struct {
	FS FileSystem

	mu      sync.Mutex
	rules   []rule
	written int64
	limit   int64
}

// NewFaultyFS wraps fsys, or Default if nil.
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{FS: fsys, limit: -1}
}

// AddRule registers fault for every path containing pattern. A zero
// FailAfterBytes leaves writes alone.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	if fault.FailAfterBytes == 0 {
		fault.FailAfterBytes = -1
	}
	f.mu.Lock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault})
	f.mu.Unlock()
}

// SetLimit fails every write once the bytes written through f would exceed
// limit. Negative disables it.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
}

// Written returns the bytes written through f.
func (f *FaultyFS) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

func (f *FaultyFS) match(name string) Fault {
	f.mu.Lock()
	defer f.mu.Unlock()

	fault := Fault{FailAfterBytes: -1}
	for _, r := range f.rules {
		if strings.Contains(name, r.pattern) {
			fault = r.fault
		}
	}
	return fault
}

// reserve accounts n bytes against the global limit.
func (f *FaultyFS) reserve(n int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limit >= 0 && f.written+int64(n) > f.limit {
		return false
	}
	f.written += int64(n)
	return true
}

func (f *FaultyFS) Open(name string) (File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault := f.match(name)
	if fault.FailOnOpen {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.err()}
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, owner: f, name: name, fault: fault}, nil
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	if fault := f.match(name); fault.FailOnReadDir {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: fault.err()}
	}
	return f.FS.ReadDir(name)
}

func (f *FaultyFS) Remove(name string) error {
	if fault := f.match(name); fault.FailOnRemove {
		return &os.PathError{Op: "remove", Path: name, Err: fault.err()}
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) RemoveAll(path string) error {
	if fault := f.match(path); fault.FailOnRemove {
		return &os.PathError{Op: "removeall", Path: path, Err: fault.err()}
	}
	return f.FS.RemoveAll(path)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error { return f.FS.Rename(oldpath, newpath) }
func (f *FaultyFS) Stat(name string) (os.FileInfo, error) { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

type faultyFile struct {
	File
	owner   *FaultyFS
	name    string
	fault   Fault
	written int64
}

func (ff *faultyFile) fail(op string) error {
	return &os.PathError{Op: op, Path: ff.name, Err: ff.fault.err()}
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	if ff.fault.FailOnRead {
		return 0, ff.fail("read")
	}
	return ff.File.Read(p)
}

func (ff *faultyFile) ReadAt(p []byte, off int64) (int, error) {
	if ff.fault.FailOnRead {
		return 0, ff.fail("read")
	}
	return ff.File.ReadAt(p, off)
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if lim := ff.fault.FailAfterBytes; lim >= 0 && ff.written+int64(len(p)) > lim {
		return 0, ff.fail("write")
	}
	if !ff.owner.reserve(len(p)) {
		return 0, ff.fail("write")
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fail("sync")
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fail("close")
	}
	return ff.File.Close()
}
