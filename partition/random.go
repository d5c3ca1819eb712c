package partition

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Random assigns the retained images by a seeded permutation: the first
// floor(n*valid) go to valid, the next floor(n*test) to test and the rest to
// train. It ignores classes entirely.
func Random(retained *roaring.Bitmap, ratios Ratios, seed uint64) (*Assignment, error) {
	if err := ratios.Validate(); err != nil {
		return nil, err
	}

	ids := retained.ToArray()
	n := len(ids)

	rng := NewRand(seed, FallbackStream)
	rng.Shuffle(n, func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	nValid := floorShare(n, ratios.Valid)
	nTest := 0
	if ratios.Test > 0 {
		nTest = floorShare(n, ratios.Test)
	}

	a := NewAssignment(ratios)
	for i, idx := range ids {
		switch {
		case i < nValid:
			a.Assign(idx, Valid)
		case i < nValid+nTest:
			a.Assign(idx, Test)
		default:
			a.Assign(idx, Train)
		}
	}

	return a, nil
}
