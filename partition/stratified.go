package partition

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splitgo/histogram"
	"github.com/hupe1980/splitgo/label"
)

// ErrStratificationInfeasible is returned when some class cannot be
// represented in every active split. Callers fall back to Random.
var ErrStratificationInfeasible = errors.New("partition: stratification infeasible")

// gainEpsilon treats split gains this close as equal.
const gainEpsilon = 1e-12

// InfeasibleError names the class that made stratification impossible.
type InfeasibleError struct {
	ClassID    int
	ImageCount int
	Split      Split
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%v: class %d with %d images gets no %s images", ErrStratificationInfeasible, e.ClassID, e.ImageCount, e.Split)
}

func (e *InfeasibleError) Unwrap() error { return ErrStratificationInfeasible }

// Input is the validated data a partitioner works on.
type Input struct {
	Dataset *label.Dataset
	// Retained are the images to partition.
	Retained *roaring.Bitmap
	// Histogram must be built over Retained with removed classes ignored.
	Histogram *histogram.Histogram
	// Keep reports whether a class survived validation. Nil keeps all.
	Keep func(classID int) bool
}

// classes returns the surviving classes of img that the histogram knows.
func (in Input) classes(img *label.Image) []int {
	set := img.Record.ClassSet()
	out := set[:0]
	for _, c := range set {
		if (in.Keep == nil || in.Keep(c)) && in.Histogram.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Targets holds the apportioned per-class and per-split image counts.
type Targets struct {
	Active []Split
	// Class maps class id to its target per active split.
	Class map[int][]int
	// Capacity is the target split size per active split.
	Capacity []int
}

// ComputeTargets apportions every class and the image total over the active
// splits. A class with at least one image per active split gets a non-zero
// target in each of them. A smaller class fails with an *InfeasibleError.
func ComputeTargets(h *histogram.Histogram, total int, ratios Ratios) (*Targets, error) {
	w := ratios.weights()
	t := &Targets{
		Active:   ratios.Active(),
		Class:    make(map[int][]int, h.Len()),
		Capacity: Apportion(total, w),
	}

	for _, c := range h.Classes() {
		n := h.ImageCount(c)
		tc := ClassTargets(n, w)
		for i, v := range tc {
			if v == 0 {
				return nil, &InfeasibleError{ClassID: c, ImageCount: n, Split: t.Active[i]}
			}
		}
		t.Class[c] = tc
	}

	return t, nil
}

// Stratified assigns the retained images so that every class is spread over
// the active splits close to ratios.
//
// Images are visited in a seeded random order, stably sorted so that images
// whose rarest class is smallest come first and background images come last.
// Each image goes to the split with remaining capacity whose classes are
// furthest behind their targets. The gain of a split is the sum over the
// image's classes of (target - assigned) / target, weighted by
// 1 / image_count so that rare classes dominate. Ties go to the split with
// more remaining capacity, then to the lower index.
func Stratified(in Input, ratios Ratios, seed uint64) (*Assignment, error) {
	if err := ratios.Validate(); err != nil {
		return nil, err
	}

	total := int(in.Retained.GetCardinality())
	targets, err := ComputeTargets(in.Histogram, total, ratios)
	if err != nil {
		return nil, err
	}

	type item struct {
		idx     uint32
		classes []int
		rarity  int
	}

	items := make([]item, 0, total)
	it := in.Retained.Iterator()
	for it.HasNext() {
		idx := it.Next()
		classes := in.classes(in.Dataset.Image(idx))
		rarity := math.MaxInt
		for _, c := range classes {
			rarity = min(rarity, in.Histogram.ImageCount(c))
		}
		items = append(items, item{idx: idx, classes: classes, rarity: rarity})
	}

	rng := NewRand(seed, OrderStream)
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	sort.SliceStable(items, func(i, j int) bool { return items[i].rarity < items[j].rarity })

	active := targets.Active
	filled := make([]int, len(active))
	assigned := make(map[int][]int, len(targets.Class))
	for c := range targets.Class {
		assigned[c] = make([]int, len(active))
	}

	a := NewAssignment(ratios)
	candidates := make([]int, 0, len(active))

	for _, im := range items {
		candidates = candidates[:0]
		for i := range active {
			if filled[i] < targets.Capacity[i] {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			for i := range active {
				candidates = append(candidates, i)
			}
		}

		best := -1
		bestGain := 0.0
		for _, i := range candidates {
			gain := 0.0
			for _, c := range im.classes {
				target := float64(targets.Class[c][i])
				gain += (target - float64(assigned[c][i])) / target / float64(in.Histogram.ImageCount(c))
			}
			if best < 0 || gain > bestGain+gainEpsilon ||
				(gain >= bestGain-gainEpsilon && targets.Capacity[i]-filled[i] > targets.Capacity[best]-filled[best]) {
				best, bestGain = i, gain
			}
		}

		filled[best]++
		for _, c := range im.classes {
			assigned[c][best]++
		}
		a.Assign(im.idx, active[best])
	}

	return a, nil
}
