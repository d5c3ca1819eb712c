// Package histogram counts class occurrences over a set of images.
//
// For every class the histogram keeps a roaring bitmap of the images that
// contain it, so image_count is the bitmap cardinality, together with the
// number of annotation instances. Classes are discovered from the data.
package histogram

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splitgo/label"
)

// ClassStats is the count pair of a single class.
type ClassStats struct {
	ClassID       int `json:"class_id"`
	ImageCount    int `json:"image_count"`
	InstanceCount int `json:"instance_count"`
}

// Histogram holds per-class counts. It is immutable after Build.
type Histogram struct {
	images    map[int]*roaring.Bitmap
	instances map[int]int
	classes   []int
	total     int
}

// Build counts classes over the images in retained (all images if nil).
// Annotations whose class satisfies ignore are skipped.
func Build(ds *label.Dataset, retained *roaring.Bitmap, ignore func(classID int) bool) *Histogram {
	h := &Histogram{
		images:    make(map[int]*roaring.Bitmap),
		instances: make(map[int]int),
	}

	add := func(img *label.Image) {
		h.total++
		for _, a := range img.Record.Annotations {
			if ignore != nil && ignore(a.ClassID) {
				continue
			}
			bm, ok := h.images[a.ClassID]
			if !ok {
				bm = roaring.New()
				h.images[a.ClassID] = bm
			}
			bm.Add(img.Index)
			h.instances[a.ClassID]++
		}
	}

	if retained == nil {
		for i := range ds.Images {
			add(&ds.Images[i])
		}
	} else {
		it := retained.Iterator()
		for it.HasNext() {
			add(ds.Image(it.Next()))
		}
	}

	h.classes = make([]int, 0, len(h.images))
	for id := range h.images {
		h.classes = append(h.classes, id)
	}
	sort.Ints(h.classes)

	return h
}

// Classes returns the observed class ids in ascending order.
func (h *Histogram) Classes() []int {
	return h.classes
}

// Len returns the number of observed classes.
func (h *Histogram) Len() int {
	return len(h.classes)
}

// Images returns the number of images the histogram was built over.
func (h *Histogram) Images() int {
	return h.total
}

// Has reports whether class c was observed.
func (h *Histogram) Has(c int) bool {
	_, ok := h.images[c]
	return ok
}

// ImageCount returns the number of images containing class c.
func (h *Histogram) ImageCount(c int) int {
	bm, ok := h.images[c]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// InstanceCount returns the number of annotations of class c.
func (h *Histogram) InstanceCount(c int) int {
	return h.instances[c]
}

// ImageSet returns the images containing class c. The bitmap must not be
// modified.
func (h *Histogram) ImageSet(c int) *roaring.Bitmap {
	if bm, ok := h.images[c]; ok {
		return bm
	}
	return roaring.New()
}

// Stats returns the counts of every class in ascending class order.
func (h *Histogram) Stats() []ClassStats {
	out := make([]ClassStats, len(h.classes))
	for i, c := range h.classes {
		out[i] = ClassStats{
			ClassID:       c,
			ImageCount:    h.ImageCount(c),
			InstanceCount: h.instances[c],
		}
	}
	return out
}

// Below returns the classes whose image count is less than threshold, ascending.
func (h *Histogram) Below(threshold int) []int {
	var out []int
	for _, c := range h.classes {
		if h.ImageCount(c) < threshold {
			out = append(out, c)
		}
	}
	return out
}
