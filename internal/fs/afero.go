package fs

import (
	iofs "io/fs"
	"os"
	"sort"

	"github.com/spf13/afero"
)

// AferoFS adapts an afero.Fs to FileSystem.
//
// It lets tests build a corpus in afero.NewMemMapFs() and lets callers plug
// any afero backend (read-only, base-path, copy-on-write) in as a source.
type AferoFS struct {
	fs afero.Fs
}

// NewAferoFS wraps fs.
func NewAferoFS(fs afero.Fs) *AferoFS {
	return &AferoFS{fs: fs}
}

func (a *AferoFS) Open(name string) (File, error) { return a.fs.Open(name) }

func (a *AferoFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return a.fs.OpenFile(name, flag, perm)
}

func (a *AferoFS) Remove(name string) error              { return a.fs.Remove(name) }
func (a *AferoFS) RemoveAll(path string) error           { return a.fs.RemoveAll(path) }
func (a *AferoFS) Rename(oldpath, newpath string) error  { return a.fs.Rename(oldpath, newpath) }
func (a *AferoFS) Stat(name string) (os.FileInfo, error) { return a.fs.Stat(name) }
func (a *AferoFS) MkdirAll(path string, perm os.FileMode) error {
	return a.fs.MkdirAll(path, perm)
}

// ReadDir returns the directory entries sorted by name, like os.ReadDir.
func (a *AferoFS) ReadDir(name string) ([]os.DirEntry, error) {
	infos, err := afero.ReadDir(a.fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]os.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, iofs.FileInfoToDirEntry(info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
