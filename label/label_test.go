package label

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memCorpus(t *testing.T, files map[string]string) fs.FileSystem {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("src/all_images", 0o755))
	require.NoError(t, mem.MkdirAll("src/all_labels", 0o755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, filepath.Join("src", name), []byte(content), 0o644))
	}
	return fs.NewAferoFS(mem)
}

func build(t *testing.T, fsys fs.FileSystem, opts Options) (*Dataset, error) {
	t.Helper()
	return Build(context.Background(), fsys, "src/all_images", "src/all_labels", opts)
}

func TestParseLine(t *testing.T) {
	a, err := ParseLine("3 0.5 0.5 0.25 0.125")
	require.NoError(t, err)
	assert.Equal(t, 3, a.ClassID)
	assert.Equal(t, []float64{0.5, 0.5, 0.25, 0.125}, a.Geometry)
	assert.Equal(t, "3 0.5 0.5 0.25 0.125", a.Raw)

	poly, err := ParseLine("1 0.1 0.1 0.2 0.1 0.2 0.3")
	require.NoError(t, err)
	assert.Len(t, poly.Geometry, 6)

	for _, bad := range []string{
		"1 0.1 0.2 0.3",
		"x 0.1 0.2 0.3 0.4",
		"1.5 0.1 0.2 0.3 0.4",
		"-1 0.1 0.2 0.3 0.4",
		"1 0.1 0.2 abc 0.4",
	} {
		_, err := ParseLine(bad)
		assert.Error(t, err, bad)
	}
}

func TestParse(t *testing.T) {
	anns, err := Parse("a.txt", strings.NewReader("0 0.1 0.1 0.1 0.1\r\n\n  \n2 0.2 0.2 0.2 0.2\n"))
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, 0, anns[0].ClassID)
	assert.Equal(t, "0 0.1 0.1 0.1 0.1", anns[0].Raw)
	assert.Equal(t, 2, anns[1].ClassID)

	_, err = Parse("b.txt", strings.NewReader("0 0.1 0.1 0.1 0.1\n\n7 oops\n"))
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "b.txt", fe.Path)
	assert.Equal(t, 3, fe.Line)
	assert.Equal(t, "7 oops", fe.Text)
}

func TestRecord(t *testing.T) {
	r := Record{ImageID: "img", Annotations: []Annotation{
		{ClassID: 2, Raw: "2 0 0 1 1"},
		{ClassID: 0, Raw: "0 0 0 1 1"},
		{ClassID: 2, Raw: "2 0.5 0.5 1 1"},
	}}

	assert.False(t, r.IsBackground())
	assert.Equal(t, []int{0, 2}, r.ClassSet())

	f := r.Filter(func(id int) bool { return id == 2 })
	assert.Equal(t, "img", f.ImageID)
	assert.Equal(t, []int{2}, f.ClassSet())
	assert.Equal(t, "2 0 0 1 1\n2 0.5 0.5 1 1\n", f.Text())

	empty := r.Filter(func(int) bool { return false })
	assert.True(t, empty.IsBackground())
	assert.Nil(t, empty.ClassSet())
	assert.Equal(t, "", empty.Text())
}

func TestBuild(t *testing.T) {
	fsys := memCorpus(t, map[string]string{
		"all_images/b.jpg":    "img",
		"all_images/a.PNG":    "img",
		"all_images/c.webp":   "img",
		"all_images/notes.md": "not an image",
		"all_labels/a.txt":    "0 0.5 0.5 0.1 0.1\n1 0.2 0.2 0.1 0.1\n",
		"all_labels/b.txt":    "",
		"all_labels/c.txt":    "1 0.5 0.5 0.1 0.1\n",
	})

	ds, err := build(t, fsys, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, "a", ds.Images[0].ID)
	assert.Equal(t, "b", ds.Images[1].ID)
	assert.Equal(t, "c", ds.Images[2].ID)
	for i, img := range ds.Images {
		assert.Equal(t, uint32(i), img.Index)
	}

	assert.Equal(t, filepath.Join("src/all_images", "a.PNG"), ds.Images[0].ImagePath)
	assert.Equal(t, []int{0, 1}, ds.Images[0].Record.ClassSet())
	assert.True(t, ds.Images[1].Record.IsBackground())

	img, ok := ds.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, uint32(2), img.Index)
	_, ok = ds.Lookup("zzz")
	assert.False(t, ok)

	assert.Equal(t, uint64(3), ds.All().GetCardinality())
	assert.Equal(t, []uint32{1}, ds.Backgrounds(nil))
}

func TestBuild_MissingLabel(t *testing.T) {
	files := map[string]string{
		"all_images/a.jpg": "img",
		"all_images/b.jpg": "img",
		"all_labels/a.txt": "0 0.5 0.5 0.1 0.1\n",
	}

	ds, err := build(t, memCorpus(t, files), Options{})
	require.NoError(t, err)
	img, _ := ds.Lookup("b")
	assert.True(t, img.Record.IsBackground())
	assert.Empty(t, img.LabelPath)

	_, err = build(t, memCorpus(t, files), Options{Strict: true})
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, MissingLabel, ce.Kind)
	assert.Equal(t, "b", ce.ImageID)
}

func TestBuild_OrphanLabel(t *testing.T) {
	files := map[string]string{
		"all_images/a.jpg": "img",
		"all_labels/a.txt": "0 0.5 0.5 0.1 0.1\n",
		"all_labels/z.txt": "0 0.5 0.5 0.1 0.1\n",
	}

	ds, err := build(t, memCorpus(t, files), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, []string{filepath.Join("src/all_labels", "z.txt")}, ds.OrphanLabels)

	_, err = build(t, memCorpus(t, files), Options{Strict: true})
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, OrphanLabel, ce.Kind)
}

func TestBuild_DuplicateStem(t *testing.T) {
	_, err := build(t, memCorpus(t, map[string]string{
		"all_images/a.jpg": "img",
		"all_images/a.png": "img",
		"all_labels/a.txt": "",
	}), Options{})

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, DuplicateStem, ce.Kind)
	assert.Len(t, ce.Paths, 2)
}

func TestBuild_FormatError(t *testing.T) {
	_, err := build(t, memCorpus(t, map[string]string{
		"all_images/a.jpg": "img",
		"all_labels/a.txt": "0 0.5 0.5 0.1 0.1\nbroken\n",
	}), Options{})

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Line)
	assert.Contains(t, fe.Error(), "a.txt:2")
}

func TestBuild_MissingDir(t *testing.T) {
	_, err := Build(context.Background(), fs.NewAferoFS(afero.NewMemMapFs()), "nope/images", "nope/labels", Options{})
	assert.Error(t, err)
}

func TestBuild_ReadFault(t *testing.T) {
	base := memCorpus(t, map[string]string{
		"all_images/a.jpg": "img",
		"all_labels/a.txt": "0 0.5 0.5 0.1 0.1\n",
	})
	boom := errors.New("disk on fire")
	faulty := fs.NewFaultyFS(base)
	faulty.AddRule("a.txt", fs.Fault{FailOnOpen: true, Err: boom})

	_, err := build(t, faulty, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestBuild_Canceled(t *testing.T) {
	fsys := memCorpus(t, map[string]string{
		"all_images/a.jpg": "img",
		"all_labels/a.txt": "",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, fsys, "src/all_images", "src/all_labels", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDataset(t *testing.T) {
	ds, err := NewDataset([]Record{
		{ImageID: "b"},
		{ImageID: "a", Annotations: []Annotation{{ClassID: 1, Raw: "1 0 0 1 1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", ds.Images[0].ID)
	assert.Equal(t, []uint32{1}, ds.Backgrounds(nil))

	_, err = NewDataset([]Record{{ImageID: "a"}, {ImageID: "a"}})
	var ce *ConsistencyError
	assert.ErrorAs(t, err, &ce)
}

func TestCheck(t *testing.T) {
	fsys := memCorpus(t, map[string]string{
		"all_images/a.jpg":  "img",
		"all_images/b.jpg":  "img",
		"all_images/c.gif":  "img",
		"all_labels/a.txt":  "",
		"all_labels/zz.txt": "",
	})

	r, err := Check(context.Background(), fsys, "src/all_images", "src/all_labels", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Images)
	assert.Equal(t, 2, r.Labels)
	assert.Equal(t, 1, r.Paired)
	assert.Equal(t, []string{"b"}, r.MissingLabels)
	assert.Equal(t, []string{filepath.Join("src/all_labels", "zz.txt")}, r.OrphanLabels)
	assert.Equal(t, []string{filepath.Join("src/all_images", "c.gif")}, r.Unsupported)
	assert.False(t, r.OK())
}
