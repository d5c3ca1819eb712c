package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/label"
)

const (
	// ImagesDir and LabelsDir are the source directory names Write uses.
	ImagesDir = "all_images"
	LabelsDir = "all_labels"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the seed used to initialize the RNG.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a random integer in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a random float64 in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) ∝ 1/k^s where s is the skew parameter; class 0 is the most frequent.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Box returns a random normalized bounding box (cx, cy, w, h).
func (r *RNG) Box() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := 0.05 + r.rand.Float64()*0.3
	h := 0.05 + r.rand.Float64()*0.3
	return []float64{
		w/2 + r.rand.Float64()*(1-w),
		h/2 + r.rand.Float64()*(1-h),
		w,
		h,
	}
}

// CorpusConfig describes a synthetic corpus.
type CorpusConfig struct {
	// Images is the number of annotated images.
	Images int
	// Backgrounds is the number of additional images without annotations.
	Backgrounds int
	// Classes is the number of distinct class ids.
	Classes int
	// MaxObjects bounds the annotations per image. Defaults to 3.
	MaxObjects int
	// Skew is the Zipf exponent of the class frequencies. Defaults to 1.
	Skew float64
}

// Corpus is an in-memory annotated dataset.
type Corpus struct {
	Records []label.Record
	// Extensions maps image id to its file extension. Missing ids use ".jpg".
	Extensions map[string]string
}

// Corpus generates a corpus with Zipf-distributed class frequencies.
// Image ids are img_00000, img_00001, ...; backgrounds follow the annotated
// images.
func (r *RNG) Corpus(cfg CorpusConfig) *Corpus {
	if cfg.MaxObjects <= 0 {
		cfg.MaxObjects = 3
	}
	if cfg.Skew <= 0 {
		cfg.Skew = 1
	}
	if cfg.Classes <= 0 {
		cfg.Classes = 1
	}

	c := &Corpus{}
	for i := 0; i < cfg.Images+cfg.Backgrounds; i++ {
		rec := label.Record{ImageID: fmt.Sprintf("img_%05d", i)}
		if i < cfg.Images {
			n := 1 + r.Intn(cfg.MaxObjects)
			for j := 0; j < n; j++ {
				rec.Annotations = append(rec.Annotations, Annotation(r.Zipf(cfg.Classes, cfg.Skew), r.Box()...))
			}
		}
		c.Records = append(c.Records, rec)
	}
	return c
}

// Annotation builds a bounding box annotation with the given geometry.
// Without geometry a centered 0.1 box is used.
func Annotation(classID int, geometry ...float64) label.Annotation {
	if len(geometry) == 0 {
		geometry = []float64{0.5, 0.5, 0.1, 0.1}
	}
	fields := make([]string, 0, len(geometry)+1)
	fields = append(fields, fmt.Sprint(classID))
	for _, g := range geometry {
		fields = append(fields, fmt.Sprintf("%.6f", g))
	}
	return label.Annotation{
		ClassID:  classID,
		Geometry: geometry,
		Raw:      strings.Join(fields, " "),
	}
}

// Record builds a record with one default box per listed class.
func Record(id string, classes ...int) label.Record {
	r := label.Record{ImageID: id}
	for _, c := range classes {
		r.Annotations = append(r.Annotations, Annotation(c))
	}
	return r
}

// Scenario returns 100 images: img000-img059 show class 0, img060-img074
// class 1 and img075-img099 are backgrounds.
func Scenario() *Corpus {
	c := &Corpus{}
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("img%03d", i)
		switch {
		case i < 60:
			c.Records = append(c.Records, Record(id, 0))
		case i < 75:
			c.Records = append(c.Records, Record(id, 1))
		default:
			c.Records = append(c.Records, Record(id))
		}
	}
	return c
}

// Add appends records to the corpus.
func (c *Corpus) Add(recs ...label.Record) *Corpus {
	c.Records = append(c.Records, recs...)
	return c
}

// Dataset indexes the corpus in memory.
func (c *Corpus) Dataset() (*label.Dataset, error) {
	return label.NewDataset(c.Records)
}

// ImageBytes returns the fake image content written for id.
func ImageBytes(id string) []byte {
	return []byte("image:" + id)
}

// Write stores the corpus below root as root/all_images/<id>.<ext> and
// root/all_labels/<id>.txt. Background images get an empty label file.
func (c *Corpus) Write(fsys fs.FileSystem, root string) error {
	return c.write(fsys, root, true)
}

// WriteImagesOnly is like Write but omits the label files of backgrounds.
func (c *Corpus) WriteImagesOnly(fsys fs.FileSystem, root string) error {
	return c.write(fsys, root, false)
}

func (c *Corpus) write(fsys fs.FileSystem, root string, emptyLabels bool) error {
	if fsys == nil {
		fsys = fs.Default
	}

	imagesDir := filepath.Join(root, ImagesDir)
	labelsDir := filepath.Join(root, LabelsDir)
	for _, dir := range []string{imagesDir, labelsDir} {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	for _, rec := range c.Records {
		ext := ".jpg"
		if e, ok := c.Extensions[rec.ImageID]; ok {
			ext = e
		}
		if err := fs.WriteFile(fsys, filepath.Join(imagesDir, rec.ImageID+ext), ImageBytes(rec.ImageID), 0o644); err != nil {
			return err
		}
		if rec.IsBackground() && !emptyLabels {
			continue
		}
		if err := fs.WriteFile(fsys, filepath.Join(labelsDir, rec.ImageID+label.LabelExtension), []byte(rec.Text()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
