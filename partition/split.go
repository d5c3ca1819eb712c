package partition

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Split identifies one output subset.
type Split uint8

const (
	Train Split = iota
	Valid
	Test
)

// Splits lists every split in index order.
var Splits = []Split{Train, Valid, Test}

// String returns the directory name of the split.
func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Valid:
		return "valid"
	case Test:
		return "test"
	default:
		return fmt.Sprintf("Split(%d)", uint8(s))
	}
}

// ParseSplit parses a split directory name.
func ParseSplit(name string) (Split, error) {
	for _, s := range Splits {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("partition: unknown split %q", name)
}

var (
	// ErrInvalidRatios is returned by Ratios.Validate.
	ErrInvalidRatios = errors.New("partition: invalid split ratios")
)

// Ratios holds the requested valid and test fractions. Train receives the rest.
type Ratios struct {
	Valid float64 `json:"valid"`
	Test  float64 `json:"test"`
}

// Validate checks 0 < Valid, 0 <= Test and Valid+Test < 1.
func (r Ratios) Validate() error {
	switch {
	case math.IsNaN(r.Valid) || math.IsNaN(r.Test):
		return fmt.Errorf("%w: NaN", ErrInvalidRatios)
	case r.Valid <= 0 || r.Valid >= 1:
		return fmt.Errorf("%w: valid %.4g must be in (0, 1)", ErrInvalidRatios, r.Valid)
	case r.Test < 0 || r.Test >= 1:
		return fmt.Errorf("%w: test %.4g must be in [0, 1)", ErrInvalidRatios, r.Test)
	case r.Valid+r.Test >= 1:
		return fmt.Errorf("%w: valid %.4g + test %.4g leaves no training data", ErrInvalidRatios, r.Valid, r.Test)
	}
	return nil
}

// Train returns the train fraction.
func (r Ratios) Train() float64 {
	return 1 - r.Valid - r.Test
}

// Of returns the fraction of split s.
func (r Ratios) Of(s Split) float64 {
	switch s {
	case Train:
		return r.Train()
	case Valid:
		return r.Valid
	case Test:
		return r.Test
	}
	return 0
}

// Active returns the splits with a non-zero fraction, in index order.
func (r Ratios) Active() []Split {
	if r.Test > 0 {
		return []Split{Train, Valid, Test}
	}
	return []Split{Train, Valid}
}

// weights returns the fractions of the active splits.
func (r Ratios) weights() []float64 {
	active := r.Active()
	w := make([]float64, len(active))
	for i, s := range active {
		w[i] = r.Of(s)
	}
	return w
}

// Assignment maps retained image indices to splits.
// Each image belongs to exactly one split.
type Assignment struct {
	ratios Ratios
	sets   [3]*roaring.Bitmap
}

// NewAssignment returns an empty assignment for ratios.
func NewAssignment(ratios Ratios) *Assignment {
	a := &Assignment{ratios: ratios}
	for i := range a.sets {
		a.sets[i] = roaring.New()
	}
	return a
}

// Ratios returns the fractions the assignment was made for.
func (a *Assignment) Ratios() Ratios {
	return a.ratios
}

// Assign moves image idx into split s.
func (a *Assignment) Assign(idx uint32, s Split) {
	for i, bm := range a.sets {
		if Split(i) != s {
			bm.Remove(idx)
		}
	}
	a.sets[s].Add(idx)
}

// Lookup returns the split of image idx.
func (a *Assignment) Lookup(idx uint32) (Split, bool) {
	for i, bm := range a.sets {
		if bm.Contains(idx) {
			return Split(i), true
		}
	}
	return 0, false
}

// Images returns the images of split s. The bitmap must not be modified.
func (a *Assignment) Images(s Split) *roaring.Bitmap {
	return a.sets[s]
}

// Size returns the number of images in split s.
func (a *Assignment) Size(s Split) int {
	return int(a.sets[s].GetCardinality())
}

// Len returns the number of assigned images.
func (a *Assignment) Len() int {
	n := 0
	for _, bm := range a.sets {
		n += int(bm.GetCardinality())
	}
	return n
}

// Has reports whether split s is active and holds at least one image.
func (a *Assignment) Has(s Split) bool {
	return a.ratios.Of(s) > 0 && !a.sets[s].IsEmpty()
}

// Splits returns the splits present in the assignment, in index order.
// Train and valid are always present.
func (a *Assignment) Splits() []Split {
	out := []Split{Train, Valid}
	if a.Has(Test) {
		out = append(out, Test)
	}
	return out
}

// Sizes returns the size of every split keyed by directory name.
func (a *Assignment) Sizes() map[string]int {
	out := make(map[string]int, 3)
	for _, s := range a.Splits() {
		out[s.String()] = a.Size(s)
	}
	return out
}
