package testutil

import (
	"context"
	"testing"

	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/label"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpus(t *testing.T) {
	rng := NewRNG(4711)

	c := rng.Corpus(CorpusConfig{Images: 200, Backgrounds: 20, Classes: 5, Skew: 1.5})
	require.Len(t, c.Records, 220)

	counts := make(map[int]int)
	for i, rec := range c.Records {
		if i >= 200 {
			assert.True(t, rec.IsBackground())
			continue
		}
		require.NotEmpty(t, rec.Annotations)
		for _, a := range rec.Annotations {
			assert.GreaterOrEqual(t, a.ClassID, 0)
			assert.Less(t, a.ClassID, 5)
			assert.Len(t, a.Geometry, 4)
			counts[a.ClassID]++
		}
	}
	// Zipf skew makes class 0 the most frequent.
	for c := 1; c < 5; c++ {
		assert.Greater(t, counts[0], counts[c])
	}
}

func TestCorpus_Reproducible(t *testing.T) {
	cfg := CorpusConfig{Images: 50, Classes: 4}
	a := NewRNG(1).Corpus(cfg)
	b := NewRNG(1).Corpus(cfg)
	assert.Equal(t, a.Records, b.Records)

	rng := NewRNG(1)
	first := rng.Corpus(cfg)
	rng.Reset()
	assert.Equal(t, first.Records, rng.Corpus(cfg).Records)
}

func TestAnnotation_Parses(t *testing.T) {
	a := Annotation(3, 0.25, 0.5, 0.125, 0.0625)
	got, err := label.ParseLine(a.Raw)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ClassID)
	assert.InDeltaSlice(t, a.Geometry, got.Geometry, 1e-9)
}

func TestScenario(t *testing.T) {
	ds, err := Scenario().Dataset()
	require.NoError(t, err)
	assert.Equal(t, 100, ds.Len())
	assert.Len(t, ds.Backgrounds(nil), 25)
}

func TestWrite(t *testing.T) {
	fsys := fs.NewAferoFS(afero.NewMemMapFs())
	c := Scenario()
	c.Extensions = map[string]string{"img001": ".png"}
	require.NoError(t, c.Write(fsys, "data"))

	ds, err := label.Build(context.Background(), fsys, "data/"+ImagesDir, "data/"+LabelsDir, label.Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 100, ds.Len())

	img, ok := ds.Lookup("img001")
	require.True(t, ok)
	assert.Equal(t, "data/all_images/img001.png", img.ImagePath)
	assert.Equal(t, c.Records[1].Annotations, img.Record.Annotations)

	data, err := fs.ReadFile(fsys, img.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, ImageBytes("img001"), data)
}

func TestWriteImagesOnly(t *testing.T) {
	fsys := fs.NewAferoFS(afero.NewMemMapFs())
	require.NoError(t, Scenario().WriteImagesOnly(fsys, "data"))

	_, err := label.Build(context.Background(), fsys, "data/"+ImagesDir, "data/"+LabelsDir, label.Options{Strict: true})
	var ce *label.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, label.MissingLabel, ce.Kind)
}
