package partition

import (
	"fmt"
	"testing"

	"github.com/hupe1980/splitgo/histogram"
	"github.com/hupe1980/splitgo/label"
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

// scenario builds 100 images: 0-59 class A (0), 60-74 class B (1),
// 75-99 background.
func scenario(t *testing.T) Input {
	t.Helper()
	recs := make([]label.Record, 0, 100)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("img%03d", i)
		switch {
		case i < 60:
			recs = append(recs, rec(id, 0))
		case i < 75:
			recs = append(recs, rec(id, 1))
		default:
			recs = append(recs, rec(id))
		}
	}
	return input(t, recs)
}

func input(t *testing.T, recs []label.Record) Input {
	t.Helper()
	ds, err := label.NewDataset(recs)
	require.NoError(t, err)
	all := ds.All()
	return Input{
		Dataset:   ds,
		Retained:  all,
		Histogram: histogram.Build(ds, all, nil),
	}
}

func classCounts(in Input, a *Assignment, class int) []int {
	out := make([]int, 3)
	for _, s := range Splits {
		it := a.Images(s).Iterator()
		for it.HasNext() {
			img := in.Dataset.Image(it.Next())
			for _, c := range img.Record.ClassSet() {
				if c == class {
					out[s]++
				}
			}
		}
	}
	return out
}
