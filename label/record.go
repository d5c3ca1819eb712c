package label

import (
	"slices"
	"strings"
)

// Annotation is a single labelled object.
type Annotation struct {
	ClassID  int
	Geometry []float64
	// Raw is the source line without surrounding whitespace.
	Raw string
}

// Record holds all annotations of one image. No annotations means background.
type Record struct {
	ImageID     string
	Annotations []Annotation
}

// IsBackground reports whether the record has no annotations.
func (r Record) IsBackground() bool {
	return len(r.Annotations) == 0
}

// ClassSet returns the distinct class ids of the record in ascending order.
func (r Record) ClassSet() []int {
	if len(r.Annotations) == 0 {
		return nil
	}
	ids := make([]int, 0, len(r.Annotations))
	for _, a := range r.Annotations {
		ids = append(ids, a.ClassID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Filter returns a copy of r keeping only annotations whose class satisfies keep.
func (r Record) Filter(keep func(classID int) bool) Record {
	out := Record{ImageID: r.ImageID}
	for _, a := range r.Annotations {
		if keep(a.ClassID) {
			out.Annotations = append(out.Annotations, a)
		}
	}
	return out
}

// Text renders the annotations as label file content, one raw line each.
func (r Record) Text() string {
	if len(r.Annotations) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, a := range r.Annotations {
		sb.WriteString(a.Raw)
		sb.WriteByte('\n')
	}
	return sb.String()
}
