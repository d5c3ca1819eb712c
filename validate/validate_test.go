package validate

import (
	"fmt"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splitgo/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, classes ...int) label.Record {
	r := label.Record{ImageID: id}
	for _, c := range classes {
		r.Annotations = append(r.Annotations, label.Annotation{
			ClassID:  c,
			Geometry: []float64{0.5, 0.5, 0.1, 0.1},
			Raw:      fmt.Sprintf("%d 0.5 0.5 0.1 0.1", c),
		})
	}
	return r
}

// corpus: class 0 in 12 images, class 1 in 3 images (one shared with class 0),
// class 2 in 10 images, 4 backgrounds.
func corpus(t *testing.T) *label.Dataset {
	t.Helper()
	var recs []label.Record
	for i := 0; i < 11; i++ {
		recs = append(recs, rec(fmt.Sprintf("a%02d", i), 0))
	}
	recs = append(recs, rec("ab", 0, 1))
	recs = append(recs, rec("b0", 1), rec("b1", 1, 1))
	for i := 0; i < 10; i++ {
		recs = append(recs, rec(fmt.Sprintf("c%02d", i), 2))
	}
	for i := 0; i < 4; i++ {
		recs = append(recs, rec(fmt.Sprintf("z%02d", i)))
	}
	ds, err := label.NewDataset(recs)
	require.NoError(t, err)
	return ds
}

func TestRun(t *testing.T) {
	ds := corpus(t)

	res, err := Run(ds, nil, DefaultMinSamples)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, res.RemovedClasses())
	assert.True(t, res.Removed(1))
	assert.True(t, res.Keep(0))
	require.Len(t, res.Report.Removed, 1)
	assert.Equal(t, RemovedClass{ClassID: 1, ImageCount: 3, InstanceCount: 4, Round: 1}, res.Report.Removed[0])

	// b0 and b1 only carried class 1; "ab" keeps its class 0 annotation.
	assert.Equal(t, 2, res.Report.ImagesDropped)
	assert.Equal(t, uint64(ds.Len()-2), res.Retained.GetCardinality())
	b0, _ := ds.Lookup("b0")
	ab, _ := ds.Lookup("ab")
	assert.False(t, res.Retained.Contains(b0.Index))
	assert.True(t, res.Retained.Contains(ab.Index))
	assert.Equal(t, []int{0}, res.Record(ab).ClassSet())

	// Backgrounds survive.
	for _, idx := range ds.Backgrounds(nil) {
		assert.True(t, res.Retained.Contains(idx))
	}

	assert.Equal(t, []int{0, 2}, res.Histogram.Classes())
	assert.Equal(t, 12, res.Histogram.ImageCount(0))
	assert.Equal(t, 2, res.Report.Rounds)
	assert.Len(t, res.Report.Before, 3)
	assert.Len(t, res.Report.After, 2)
}

func TestRun_EveryClassMeetsThreshold(t *testing.T) {
	ds := corpus(t)

	res, err := Run(ds, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, res.RemovedClasses())
	assert.Equal(t, 1, res.Report.Rounds)
	assert.Equal(t, uint64(ds.Len()), res.Retained.GetCardinality())
}

func TestRun_Idempotent(t *testing.T) {
	ds := corpus(t)

	first, err := Run(ds, nil, DefaultMinSamples)
	require.NoError(t, err)

	second, err := Run(ds, first.Retained, DefaultMinSamples)
	require.NoError(t, err)

	// Class 1 survives only on "ab" now, so the second pass removes it again
	// without dropping more images.
	assert.Equal(t, 0, second.Report.ImagesDropped)
	assert.True(t, first.Retained.Equals(second.Retained))
	assert.Equal(t, first.Histogram.Classes(), second.Histogram.Classes())
}

func TestRun_RemovesEverything(t *testing.T) {
	ds := corpus(t)

	res, err := Run(ds, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, res.RemovedClasses())
	assert.Equal(t, 0, res.Histogram.Len())
	// Only backgrounds remain.
	assert.Equal(t, uint64(4), res.Retained.GetCardinality())
}

func TestRun_DoesNotModifyInput(t *testing.T) {
	ds := corpus(t)
	in := ds.All()

	_, err := Run(ds, in, DefaultMinSamples)
	require.NoError(t, err)
	assert.Equal(t, uint64(ds.Len()), in.GetCardinality())
}

func TestRun_Subset(t *testing.T) {
	ds := corpus(t)
	c0, _ := ds.Lookup("c00")

	res, err := Run(ds, roaring.BitmapOf(c0.Index), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, res.Histogram.Classes())
}
