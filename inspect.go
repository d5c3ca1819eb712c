package splitgo

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/hupe1980/splitgo/histogram"
	"github.com/hupe1980/splitgo/label"
	"github.com/hupe1980/splitgo/manifest"
	"github.com/hupe1980/splitgo/validate"
)

// Check reports how the images and label files below src pair up, without
// parsing label contents.
func Check(ctx context.Context, src string, optFns ...Option) (*label.PairingReport, error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}
	return label.Check(ctx, o.fsys,
		filepath.Join(src, o.imagesDir),
		filepath.Join(src, o.labelsDir),
		label.Options{Strict: o.strict},
	)
}

// ClassInfo is one row of a class listing.
type ClassInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Images    int    `json:"images"`
	Instances int    `json:"instances"`
	// Removed is set when the class would not survive validation.
	Removed bool `json:"removed"`
}

// ListClasses builds the class histogram of the corpus below src and marks
// the classes that validation with the configured minimum would remove.
// Rows are ordered by id, or by name when sortByName is set.
func ListClasses(ctx context.Context, src string, sortByName bool, optFns ...Option) ([]ClassInfo, error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	ds, err := label.Build(ctx, o.fsys,
		filepath.Join(src, o.imagesDir),
		filepath.Join(src, o.labelsDir),
		label.Options{Strict: o.strict},
	)
	if err != nil {
		return nil, err
	}

	names := o.names
	if names == nil {
		names, err = manifest.LoadNames(o.fsys, filepath.Join(src, manifest.DataFile))
		if err != nil {
			return nil, err
		}
	}

	h := histogram.Build(ds, nil, nil)
	mapping := manifest.NewClassMapping(h.Classes(), names)

	v, err := validate.Run(ds, nil, o.minSamples)
	if err != nil {
		return nil, err
	}

	out := make([]ClassInfo, 0, h.Len())
	for _, s := range h.Stats() {
		name, _ := mapping.Name(s.ClassID)
		out = append(out, ClassInfo{
			ID:        s.ClassID,
			Name:      name,
			Images:    s.ImageCount,
			Instances: s.InstanceCount,
			Removed:   v.Removed(s.ClassID),
		})
	}

	if sortByName {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out, nil
}
