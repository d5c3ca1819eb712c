package partition

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splitgo/label"
)

// DumpResult describes the outcome of Dump.
type DumpResult struct {
	// Retained is the input set without the dumped images.
	Retained *roaring.Bitmap
	// Removed lists the dumped image indices in ascending order.
	Removed []uint32
	// Requested is the number of images asked for.
	Requested int
	// Available is the number of background images that were eligible.
	Available int
}

// Short reports whether fewer images were removed than requested.
func (r *DumpResult) Short() bool {
	return r.Requested > r.Available
}

// Dump removes up to count background images from retained (all images if
// nil), chosen by a seeded shuffle of the background indices. The input
// bitmap is not modified.
func Dump(ds *label.Dataset, retained *roaring.Bitmap, count int, seed uint64) *DumpResult {
	if retained == nil {
		retained = ds.All()
	} else {
		retained = retained.Clone()
	}

	bg := ds.Backgrounds(retained)
	res := &DumpResult{
		Retained:  retained,
		Requested: max(count, 0),
		Available: len(bg),
	}
	if count <= 0 || len(bg) == 0 {
		return res
	}

	rng := NewRand(seed, DumpStream)
	rng.Shuffle(len(bg), func(i, j int) { bg[i], bg[j] = bg[j], bg[i] })

	picked := roaring.BitmapOf(bg[:min(count, len(bg))]...)
	retained.AndNot(picked)
	res.Removed = picked.ToArray()

	return res
}
