package label

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splitgo/internal/fs"
)

// ImageExtensions are the file extensions recognised as images.
var ImageExtensions = []string{
	".bmp", ".dng", ".jpeg", ".jpg", ".jfif", ".mpo",
	".png", ".tif", ".tiff", ".webp", ".pfm", ".heic",
}

// LabelExtension is the extension of label files.
const LabelExtension = ".txt"

// Options configures Build.
type Options struct {
	// Strict turns missing and orphan label files into ConsistencyErrors.
	Strict bool

	// ImageExtensions overrides the default image extensions.
	ImageExtensions []string
}

// Image is one entry of a Dataset.
type Image struct {
	// Index is the dense position of the image in Dataset.Images.
	Index uint32
	// ID is the file stem shared by the image and its label file.
	ID        string
	ImagePath string
	// LabelPath is empty when the label file is absent.
	LabelPath string
	Record    Record
}

// Dataset is the immutable index of a corpus, ordered by image id.
type Dataset struct {
	ImagesDir string
	LabelsDir string
	Images    []Image
	// OrphanLabels lists label files without an image (non-strict mode).
	OrphanLabels []string

	byID map[string]uint32
}

// NewDataset indexes records that were built in memory.
// Records are sorted by ImageID; images get the path <imagesDir>/<id>.jpg.
func NewDataset(records []Record) (*Dataset, error) {
	sorted := slices.Clone(records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ImageID < sorted[j].ImageID })

	ds := &Dataset{
		Images: make([]Image, len(sorted)),
		byID:   make(map[string]uint32, len(sorted)),
	}
	for i, r := range sorted {
		if _, dup := ds.byID[r.ImageID]; dup {
			return nil, &ConsistencyError{Kind: DuplicateStem, ImageID: r.ImageID}
		}
		ds.byID[r.ImageID] = uint32(i)
		ds.Images[i] = Image{
			Index:     uint32(i),
			ID:        r.ImageID,
			ImagePath: r.ImageID + ".jpg",
			LabelPath: r.ImageID + LabelExtension,
			Record:    r,
		}
	}
	return ds, nil
}

// Len returns the number of images.
func (d *Dataset) Len() int {
	return len(d.Images)
}

// Image returns the image at idx.
func (d *Dataset) Image(idx uint32) *Image {
	return &d.Images[idx]
}

// Lookup returns the image with the given id.
func (d *Dataset) Lookup(id string) (*Image, bool) {
	idx, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return &d.Images[idx], true
}

// All returns a bitmap containing every image index.
func (d *Dataset) All() *roaring.Bitmap {
	bm := roaring.New()
	if len(d.Images) > 0 {
		bm.AddRange(0, uint64(len(d.Images)))
	}
	return bm
}

// Backgrounds returns the indices of background images within set, ascending.
// A nil set means all images.
func (d *Dataset) Backgrounds(set *roaring.Bitmap) []uint32 {
	var out []uint32
	for i := range d.Images {
		if set != nil && !set.Contains(uint32(i)) {
			continue
		}
		if d.Images[i].Record.IsBackground() {
			out = append(out, uint32(i))
		}
	}
	return out
}

// Build indexes imagesDir and labelsDir.
//
// Every image receives exactly one record. An image without a label file is a
// background image unless opts.Strict is set, in which case Build fails with a
// ConsistencyError. Label files are parsed eagerly; the first malformed line
// fails the build with a FormatError.
func Build(ctx context.Context, fsys fs.FileSystem, imagesDir, labelsDir string, opts Options) (*Dataset, error) {
	if fsys == nil {
		fsys = fs.Default
	}

	p, err := scan(fsys, imagesDir, labelsDir, opts)
	if err != nil {
		return nil, err
	}

	if len(p.duplicates) > 0 {
		id := p.duplicates[0]
		return nil, &ConsistencyError{Kind: DuplicateStem, ImageID: id, Paths: p.images[id]}
	}
	if opts.Strict {
		if len(p.missing) > 0 {
			id := p.missing[0]
			return nil, &ConsistencyError{Kind: MissingLabel, ImageID: id, Paths: p.images[id]}
		}
		if len(p.orphans) > 0 {
			id := p.orphans[0]
			return nil, &ConsistencyError{Kind: OrphanLabel, ImageID: id, Paths: []string{p.labels[id]}}
		}
	}

	ids := make([]string, 0, len(p.images))
	for id := range p.images {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ds := &Dataset{
		ImagesDir: imagesDir,
		LabelsDir: labelsDir,
		Images:    make([]Image, len(ids)),
		byID:      make(map[string]uint32, len(ids)),
	}
	for _, id := range p.orphans {
		ds.OrphanLabels = append(ds.OrphanLabels, p.labels[id])
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img := Image{
			Index:     uint32(i),
			ID:        id,
			ImagePath: p.images[id][0],
			LabelPath: p.labels[id],
			Record:    Record{ImageID: id},
		}
		if img.LabelPath != "" {
			data, err := fs.ReadFile(fsys, img.LabelPath)
			if err != nil {
				return nil, fmt.Errorf("label: read %s: %w", img.LabelPath, err)
			}
			anns, err := Parse(img.LabelPath, bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			img.Record.Annotations = anns
		}

		ds.Images[i] = img
		ds.byID[id] = uint32(i)
	}

	return ds, nil
}

// pairing is the raw result of scanning both directories.
type pairing struct {
	images      map[string][]string // stem -> image paths
	labels      map[string]string   // stem -> label path
	missing     []string            // image stems without label
	orphans     []string            // label stems without image
	duplicates  []string            // stems with more than one image
	unsupported []string            // files in the image dir with unknown extensions
}

func scan(fsys fs.FileSystem, imagesDir, labelsDir string, opts Options) (*pairing, error) {
	exts := opts.ImageExtensions
	if len(exts) == 0 {
		exts = ImageExtensions
	}

	p := &pairing{
		images: make(map[string][]string),
		labels: make(map[string]string),
	}

	imgEntries, err := fsys.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("label: read image dir: %w", err)
	}
	for _, e := range imgEntries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !slices.Contains(exts, ext) {
			p.unsupported = append(p.unsupported, filepath.Join(imagesDir, name))
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		p.images[stem] = append(p.images[stem], filepath.Join(imagesDir, name))
	}

	lblEntries, err := fsys.ReadDir(labelsDir)
	if err != nil {
		return nil, fmt.Errorf("label: read label dir: %w", err)
	}
	for _, e := range lblEntries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), LabelExtension) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		p.labels[stem] = filepath.Join(labelsDir, e.Name())
	}

	for stem, paths := range p.images {
		if len(paths) > 1 {
			sort.Strings(paths)
			p.duplicates = append(p.duplicates, stem)
		}
		if _, ok := p.labels[stem]; !ok {
			p.missing = append(p.missing, stem)
		}
	}
	for stem := range p.labels {
		if _, ok := p.images[stem]; !ok {
			p.orphans = append(p.orphans, stem)
		}
	}
	sort.Strings(p.duplicates)
	sort.Strings(p.missing)
	sort.Strings(p.orphans)
	sort.Strings(p.unsupported)

	return p, nil
}
