// Package validate removes classes that are too rare to be split.
//
// Removing a class can empty an image, and dropping that image lowers the
// count of the other classes it contained, which may push them below the
// threshold in turn. Run therefore repeats until a round removes nothing.
package validate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splitgo/histogram"
	"github.com/hupe1980/splitgo/label"
)

// DefaultMinSamples is the default minimum number of images per class.
const DefaultMinSamples = 10

// ErrNoFixpoint is returned if the iteration bound is exceeded.
// It indicates a bug; every non-final round removes at least one class.
var ErrNoFixpoint = errors.New("validate: no fixpoint reached")

// RemovedClass records a class dropped by the validator and the counts it
// had in the round it was removed.
type RemovedClass struct {
	ClassID       int `json:"class_id"`
	ImageCount    int `json:"image_count"`
	InstanceCount int `json:"instance_count"`
	Round         int `json:"round"`
}

// Report summarises a validation run.
type Report struct {
	Removed       []RemovedClass         `json:"removed_classes"`
	ImagesDropped int                    `json:"images_dropped"`
	Rounds        int                    `json:"rounds"`
	Before        []histogram.ClassStats `json:"before"`
	After         []histogram.ClassStats `json:"after"`
}

// Result is the outcome of Run.
type Result struct {
	// Retained holds the images that survive validation.
	Retained *roaring.Bitmap
	// Histogram is computed over Retained with removed classes ignored.
	Histogram *histogram.Histogram
	Report    Report

	removed map[int]struct{}
}

// Removed reports whether class c was removed.
func (r *Result) Removed(c int) bool {
	_, ok := r.removed[c]
	return ok
}

// Keep reports whether class c survived. It is the complement of Removed.
func (r *Result) Keep(c int) bool {
	return !r.Removed(c)
}

// RemovedClasses returns the removed class ids in ascending order.
func (r *Result) RemovedClasses() []int {
	out := make([]int, 0, len(r.removed))
	for c := range r.removed {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Record returns the record of img without annotations of removed classes.
func (r *Result) Record(img *label.Image) label.Record {
	if len(r.removed) == 0 {
		return img.Record
	}
	return img.Record.Filter(r.Keep)
}

// Run validates the images in retained (all images if nil) against
// minSamples. The input bitmap is not modified.
//
// Background images are always kept. An image whose annotations all belong
// to removed classes is dropped.
func Run(ds *label.Dataset, retained *roaring.Bitmap, minSamples int) (*Result, error) {
	if retained == nil {
		retained = ds.All()
	} else {
		retained = retained.Clone()
	}

	res := &Result{
		Retained: retained,
		removed:  make(map[int]struct{}),
	}

	ignore := func(c int) bool { return res.Removed(c) }

	initial := histogram.Build(ds, retained, nil)
	res.Report.Before = initial.Stats()
	maxRounds := initial.Len() + 1

	h := initial
	for round := 1; round <= maxRounds; round++ {
		if round > 1 {
			h = histogram.Build(ds, retained, ignore)
		}
		res.Report.Rounds = round

		below := h.Below(minSamples)
		if len(below) == 0 {
			res.Histogram = h
			res.Report.After = h.Stats()
			return res, nil
		}

		for _, c := range below {
			res.removed[c] = struct{}{}
			res.Report.Removed = append(res.Report.Removed, RemovedClass{
				ClassID:       c,
				ImageCount:    h.ImageCount(c),
				InstanceCount: h.InstanceCount(c),
				Round:         round,
			})
		}

		var emptied []uint32
		it := retained.Iterator()
		for it.HasNext() {
			img := ds.Image(it.Next())
			if img.Record.IsBackground() {
				continue
			}
			if !slices.ContainsFunc(img.Record.Annotations, func(a label.Annotation) bool { return res.Keep(a.ClassID) }) {
				emptied = append(emptied, img.Index)
			}
		}
		for _, idx := range emptied {
			retained.Remove(idx)
		}
		res.Report.ImagesDropped += len(emptied)
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrNoFixpoint, maxRounds)
}
