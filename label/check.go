package label

import (
	"context"
	"sort"

	"github.com/hupe1980/splitgo/internal/fs"
)

// PairingReport summarises how images and label files pair up.
type PairingReport struct {
	Images        int      `json:"images"`
	Labels        int      `json:"labels"`
	Paired        int      `json:"paired"`
	MissingLabels []string `json:"missing_labels,omitempty"`
	OrphanLabels  []string `json:"orphan_labels,omitempty"`
	Duplicates    []string `json:"duplicates,omitempty"`
	Unsupported   []string `json:"unsupported,omitempty"`
}

// OK reports whether every image has exactly one label file and vice versa.
func (r *PairingReport) OK() bool {
	return len(r.MissingLabels) == 0 && len(r.OrphanLabels) == 0 && len(r.Duplicates) == 0
}

// Check scans both directories without parsing label contents.
func Check(ctx context.Context, fsys fs.FileSystem, imagesDir, labelsDir string, opts Options) (*PairingReport, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := scan(fsys, imagesDir, labelsDir, opts)
	if err != nil {
		return nil, err
	}

	r := &PairingReport{
		Labels:        len(p.labels),
		MissingLabels: p.missing,
		Duplicates:    p.duplicates,
		Unsupported:   p.unsupported,
	}
	for stem, paths := range p.images {
		r.Images += len(paths)
		if _, ok := p.labels[stem]; ok {
			r.Paired++
		}
	}
	for _, stem := range p.orphans {
		r.OrphanLabels = append(r.OrphanLabels, p.labels[stem])
	}
	sort.Strings(r.OrphanLabels)

	return r, nil
}
