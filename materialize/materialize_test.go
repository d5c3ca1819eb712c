package materialize

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/label"
	"github.com/hupe1980/splitgo/partition"
	"github.com/hupe1980/splitgo/resource"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fsys fs.FileSystem
	ds   *label.Dataset
	a    *partition.Assignment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	files := map[string]string{
		"src/all_images/a.jpg": "AAAA",
		"src/all_images/b.png": "BBBBBB",
		"src/all_images/c.jpg": "CC",
		"src/all_labels/a.txt": "0 0.5 0.5 0.1 0.1\n1 0.2 0.2 0.1 0.1\n",
		"src/all_labels/b.txt": "1 0.5 0.5 0.1 0.1\n",
		"src/all_labels/c.txt": "",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, name, []byte(content), 0o644))
	}
	fsys := fs.NewAferoFS(mem)

	ds, err := label.Build(context.Background(), fsys, "src/all_images", "src/all_labels", label.Options{})
	require.NoError(t, err)

	a := partition.NewAssignment(partition.Ratios{Valid: 0.3, Test: 0.3})
	a.Assign(0, partition.Train)
	a.Assign(1, partition.Valid)
	a.Assign(2, partition.Test)

	return &fixture{fsys: fsys, ds: ds, a: a}
}

func read(t *testing.T, store blobstore.BlobStore, name string) string {
	t.Helper()
	data, err := blobstore.ReadAll(context.Background(), store, name)
	require.NoError(t, err, name)
	return string(data)
}

func TestPlan(t *testing.T) {
	f := newFixture(t)

	jobs := Plan(f.ds, f.a, nil)
	require.Len(t, jobs, 3)
	assert.Equal(t, partition.Train, jobs[0].Split)
	assert.Equal(t, "train/images/a.jpg", jobs[0].ImageName())
	assert.Equal(t, "train/labels/a.txt", jobs[0].LabelName())
	assert.Equal(t, "valid/images/b.png", jobs[1].ImageName())
	assert.Equal(t, "test/labels/c.txt", jobs[2].LabelName())
}

func TestMaterialize(t *testing.T) {
	f := newFixture(t)
	dst := blobstore.NewMemoryStore()

	// Strip class 1.
	keep := func(img *label.Image) label.Record {
		return img.Record.Filter(func(c int) bool { return c != 1 })
	}

	var mu sync.Mutex
	var events []Event
	res, err := Materialize(context.Background(), f.fsys, dst, Plan(f.ds, f.a, keep), Options{
		Workers: 2,
		OnFile: func(e Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 6, res.Files)
	assert.Len(t, events, 6)

	assert.Equal(t, "AAAA", read(t, dst, "train/images/a.jpg"))
	assert.Equal(t, "0 0.5 0.5 0.1 0.1\n", read(t, dst, "train/labels/a.txt"))
	assert.Equal(t, "BBBBBB", read(t, dst, "valid/images/b.png"))
	// b only had class 1; the label is emptied but the pair is still written.
	assert.Equal(t, "", read(t, dst, "valid/labels/b.txt"))
	assert.Equal(t, "CC", read(t, dst, "test/images/c.jpg"))
	assert.Equal(t, "", read(t, dst, "test/labels/c.txt"))
}

func TestMaterialize_VerbatimLabel(t *testing.T) {
	f := newFixture(t)
	dst := blobstore.NewMemoryStore()

	_, err := Materialize(context.Background(), f.fsys, dst, Plan(f.ds, f.a, nil), Options{})
	require.NoError(t, err)
	assert.Equal(t, "0 0.5 0.5 0.1 0.1\n1 0.2 0.2 0.1 0.1\n", read(t, dst, "train/labels/a.txt"))
}

func TestMaterialize_SourceFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("unreadable")
	faulty := fs.NewFaultyFS(f.fsys)
	faulty.AddRule("b.png", fs.Fault{FailOnOpen: true, Err: boom})
	dst := blobstore.NewMemoryStore()

	res, err := Materialize(context.Background(), faulty, dst, Plan(f.ds, f.a, nil), Options{Workers: 1})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, partition.Valid, res.Failures[0].Split)
	assert.Equal(t, "valid/images/b.png", res.Failures[0].Path)
	assert.ErrorIs(t, res.Failures[0], boom)
	assert.Equal(t, 5, res.Files)

	ok, err := blobstore.Exists(context.Background(), dst, "valid/images/b.png")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "1 0.5 0.5 0.1 0.1\n", read(t, dst, "valid/labels/b.txt"))
}

func TestMaterialize_FailuresSorted(t *testing.T) {
	f := newFixture(t)
	faulty := fs.NewFaultyFS(f.fsys)
	faulty.AddRule(".jpg", fs.Fault{FailOnOpen: true})

	res, err := Materialize(context.Background(), faulty, blobstore.NewMemoryStore(), Plan(f.ds, f.a, nil), Options{Workers: 4})
	require.NoError(t, err)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "train/images/a.jpg", res.Failures[0].Path)
	assert.Equal(t, "test/images/c.jpg", res.Failures[1].Path)
}

func TestMaterialize_DestinationWriteFault(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("a.jpg", fs.Fault{FailAfterBytes: 2})
	dst := blobstore.NewLocalStoreFS(faulty, dir)

	res, err := Materialize(context.Background(), f.fsys, dst, Plan(f.ds, f.a, nil), Options{Workers: 1})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "train/images/a.jpg", res.Failures[0].Path)

	names, err := dst.List(context.Background(), "train/images/")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NoFileExists(t, filepath.Join(dir, "train", "images", "a.jpg.tmp"))
}

func TestMaterialize_AllFailed(t *testing.T) {
	f := newFixture(t)
	faulty := fs.NewFaultyFS(f.fsys)
	faulty.AddRule("src/", fs.Fault{FailOnOpen: true})

	res, err := Materialize(context.Background(), faulty, blobstore.NewMemoryStore(), Plan(f.ds, f.a, nil), Options{})
	require.ErrorIs(t, err, ErrAllFailed)
	assert.Len(t, res.Failures, 6)
}

func TestMaterialize_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Materialize(ctx, f.fsys, blobstore.NewMemoryStore(), Plan(f.ds, f.a, nil), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaterialize_Controller(t *testing.T) {
	f := newFixture(t)
	rc := resource.NewController(resource.Config{MaxWorkers: 2, IOLimitBytesPerSec: 1 << 20, MemoryLimitBytes: 1 << 10})
	dst := blobstore.NewMemoryStore()

	keep := func(img *label.Image) label.Record {
		return img.Record.Filter(func(c int) bool { return c == 0 })
	}
	res, err := Materialize(context.Background(), f.fsys, dst, Plan(f.ds, f.a, keep), Options{Controller: rc})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Files)
	assert.Equal(t, res.Bytes, rc.IOBytes())
	assert.Zero(t, rc.MemoryUsage())
}

func TestClearAndExisting(t *testing.T) {
	ctx := context.Background()
	dst := blobstore.NewMemoryStore()
	for _, name := range []string{"train/images/a.jpg", "valid/labels/b.txt", "data.yaml", "notes.md"} {
		require.NoError(t, dst.Put(ctx, name, []byte("x")))
	}

	existing, err := Existing(ctx, dst)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"train/images/a.jpg", "valid/labels/b.txt"}, existing)

	require.NoError(t, Clear(ctx, dst))

	ok, err := blobstore.Exists(ctx, dst, "data.yaml")
	require.NoError(t, err)
	assert.False(t, ok)

	existing, err = Existing(ctx, dst)
	require.NoError(t, err)
	assert.Empty(t, existing)

	ok, err = blobstore.Exists(ctx, dst, "notes.md")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join(nil))

	err := Join([]*IOFailure{{Split: partition.Test, Path: "test/images/x.jpg", Err: errors.New("nope")}})
	assert.ErrorContains(t, err, "test/images/x.jpg")
}
