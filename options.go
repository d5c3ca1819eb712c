package splitgo

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/splitgo/archive"
	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/partition"
	"github.com/hupe1980/splitgo/validate"
)

const (
	// DefaultImagesDir is the image directory below the source root.
	DefaultImagesDir = "all_images"
	// DefaultLabelsDir is the label directory below the source root.
	DefaultLabelsDir = "all_labels"
	// DefaultValidRatio is the fraction of images put into the valid split.
	DefaultValidRatio = 0.2
	// DefaultSeed seeds every random stream of a run.
	DefaultSeed uint64 = 1
)

type options struct {
	fsys             fs.FileSystem
	dest             blobstore.BlobStore
	outDir           string
	imagesDir        string
	labelsDir        string
	ratios           partition.Ratios
	minSamples       int
	seed             uint64
	dump             int
	strict           bool
	workers          int
	ioLimit          int64
	memoryLimit      int64
	overwrite        bool
	names            map[int]string
	archive          io.Writer
	archiveCodec     archive.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	now              func() time.Time
}

// Option configures Run and Plan.
type Option func(*options)

func defaultOptions() options {
	return options{
		fsys:             fs.Default,
		imagesDir:        DefaultImagesDir,
		labelsDir:        DefaultLabelsDir,
		ratios:           partition.Ratios{Valid: DefaultValidRatio},
		minSamples:       validate.DefaultMinSamples,
		seed:             DefaultSeed,
		archiveCodec:     archive.CodecZstd,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		now:              time.Now,
	}
}

func applyOptions(optFns []Option) (options, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	if err := o.ratios.Validate(); err != nil {
		return o, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.minSamples < 1 {
		return o, fmt.Errorf("%w: min samples must be positive, got %d", ErrInvalidOptions, o.minSamples)
	}
	if o.dump < 0 {
		return o, fmt.Errorf("%w: dump count must not be negative, got %d", ErrInvalidOptions, o.dump)
	}
	if o.workers < 0 {
		return o, fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidOptions, o.workers)
	}
	if o.ioLimit < 0 || o.memoryLimit < 0 {
		return o, fmt.Errorf("%w: limits must not be negative", ErrInvalidOptions)
	}
	if o.dest != nil && o.outDir != "" {
		return o, fmt.Errorf("%w: destination and output directory are mutually exclusive", ErrInvalidOptions)
	}
	return o, nil
}

// WithFileSystem sets the filesystem the source corpus is read from.
// If nil is passed, the local filesystem is used.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fsys = fsys
	}
}

// WithDestination writes the split into store instead of a local directory.
func WithDestination(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.dest = store
	}
}

// WithOutputDir writes the split below dir on the local filesystem.
// The default is the source directory itself.
func WithOutputDir(dir string) Option {
	return func(o *options) {
		o.outDir = dir
	}
}

// WithLayout overrides the image and label directory names below the source
// root (default all_images and all_labels).
func WithLayout(imagesDir, labelsDir string) Option {
	return func(o *options) {
		o.imagesDir = imagesDir
		o.labelsDir = labelsDir
	}
}

// WithRatios sets the valid and test fractions. Train receives the rest.
func WithRatios(valid, test float64) Option {
	return func(o *options) {
		o.ratios = partition.Ratios{Valid: valid, Test: test}
	}
}

// WithMinSamples sets the minimum number of images a class must appear in
// to survive validation.
func WithMinSamples(n int) Option {
	return func(o *options) {
		o.minSamples = n
	}
}

// WithSeed seeds the dump, order and fallback random streams.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithDump removes up to n background images before validation.
func WithDump(n int) Option {
	return func(o *options) {
		o.dump = n
	}
}

// WithStrict turns missing and orphan label files into errors.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithWorkers bounds the number of files copied concurrently.
// Zero means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithIOLimit caps the copy throughput in bytes per second. Zero is unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMemoryLimit caps the bytes held by rewritten label files.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithOverwrite replaces a split left in the destination by an earlier run.
// Without it Run fails with ErrOutputExists.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.overwrite = overwrite
	}
}

// WithClassNames sets class names explicitly. Without it names are read from
// <src>/data.yaml when present.
func WithClassNames(names map[int]string) Option {
	return func(o *options) {
		o.names = names
	}
}

// WithArchive additionally streams the finished split into w as a
// compressed tar archive.
func WithArchive(w io.Writer, codec archive.Codec) Option {
	return func(o *options) {
		o.archive = w
		o.archiveCodec = codec
	}
}

// WithMetricsCollector sets a custom metrics collector.
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets a custom structured logger.
// If nil is passed, NoopLogger is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}
