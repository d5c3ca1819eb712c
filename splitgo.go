package splitgo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/splitgo/archive"
	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/label"
	"github.com/hupe1980/splitgo/manifest"
	"github.com/hupe1980/splitgo/materialize"
	"github.com/hupe1980/splitgo/partition"
	"github.com/hupe1980/splitgo/resource"
	"github.com/hupe1980/splitgo/validate"
)

// Result is the outcome of Plan or Run.
type Result struct {
	RunID    string
	Source   string
	// Location is where the split was written. Empty for Plan.
	Location string

	Mode     manifest.Mode
	// Fallback is set when stratification was infeasible and the images were
	// split at random instead. The cause is listed in Warnings.
	Fallback bool

	Dataset    *label.Dataset
	Dump       *partition.DumpResult
	Validation *validate.Result
	Assignment *partition.Assignment
	// Classes maps the classes that survived validation.
	Classes    manifest.ClassMapping
	// Table is the dense class table written to data.yaml. It keeps every
	// source name so class ids in the label files stay valid.
	Table      manifest.ClassMapping
	Quality    *partition.Report

	Files    int
	Bytes    int64
	Failures []*IOFailure
	// Written lists the manifest files emitted next to the split trees.
	Written  []string
	Archive  *archive.Stats

	Warnings []string
	Duration time.Duration
}

// OK reports whether every file was materialized.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Sizes returns the number of images per split.
func (r *Result) Sizes() map[string]int {
	if r.Assignment == nil {
		return map[string]int{}
	}
	return r.Assignment.Sizes()
}

type runner struct {
	opts options
	src  string
	log  *Logger
	rc   *resource.Controller
	res  *Result
}

func newRunner(src string, optFns []Option) (*runner, error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &runner{
		opts: o,
		src:  src,
		log:  o.logger.WithRunID(id).WithSource(src),
		rc:   newController(o),
		res: &Result{
			RunID:  id,
			Source: src,
			Mode:   manifest.ModeStratified,
		},
	}, nil
}

// Plan indexes, validates and partitions the corpus below src without
// writing anything.
func Plan(ctx context.Context, src string, optFns ...Option) (*Result, error) {
	r, err := newRunner(src, optFns)
	if err != nil {
		return nil, err
	}

	start := r.opts.now()
	err = r.plan(ctx)
	r.res.Duration = r.opts.now().Sub(start)
	if err != nil {
		return r.res, err
	}
	return r.res, nil
}

// Run partitions the corpus below src and materializes the split.
//
// Parsing, validation and destination checks happen before anything is
// written. Once copying starts, per-file failures are collected in
// Result.Failures; Run still writes the manifests and returns a nil error
// unless every copy failed.
func Run(ctx context.Context, src string, optFns ...Option) (*Result, error) {
	r, err := newRunner(src, optFns)
	if err != nil {
		return nil, err
	}

	start := r.opts.now()
	defer func() { r.res.Duration = r.opts.now().Sub(start) }()

	if err := r.plan(ctx); err != nil {
		return r.res, err
	}

	dst := r.destination()
	r.res.Location = blobstore.Location(dst)

	if err := r.prepare(ctx, dst); err != nil {
		return r.res, err
	}
	if err := r.materialize(ctx, dst); err != nil {
		return r.res, err
	}
	if err := r.emit(ctx, dst); err != nil {
		return r.res, err
	}
	if r.opts.archive != nil {
		if err := r.archive(ctx, dst); err != nil {
			return r.res, err
		}
	}

	r.log.InfoContext(ctx, "split completed",
		"mode", string(r.res.Mode),
		"sizes", r.res.Sizes(),
		"failures", len(r.res.Failures),
		"location", r.res.Location,
	)
	return r.res, nil
}

func (r *runner) timed(ctx context.Context, s Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)

	r.opts.metricsCollector.RecordStage(s, d, err)
	r.log.LogStage(ctx, s, d, err)
	return err
}

func (r *runner) warn(msg string) {
	r.res.Warnings = append(r.res.Warnings, msg)
}

func (r *runner) plan(ctx context.Context) error {
	o := r.opts
	res := r.res

	err := r.timed(ctx, StageIndex, func() error {
		ds, err := label.Build(ctx, o.fsys,
			filepath.Join(r.src, o.imagesDir),
			filepath.Join(r.src, o.labelsDir),
			label.Options{Strict: o.strict},
		)
		if err != nil {
			return err
		}
		res.Dataset = ds
		if n := len(ds.OrphanLabels); n > 0 {
			r.warn(fmt.Sprintf("%d label files without an image were skipped", n))
			r.log.WarnContext(ctx, "orphan label files skipped", "count", n)
		}
		return nil
	})
	if err != nil {
		return err
	}

	names := o.names
	if names == nil {
		names, err = manifest.LoadNames(o.fsys, filepath.Join(r.src, manifest.DataFile))
		if err != nil {
			return err
		}
	}

	retained := res.Dataset.All()
	if o.dump > 0 {
		err = r.timed(ctx, StageDump, func() error {
			d := partition.Dump(res.Dataset, retained, o.dump, o.seed)
			res.Dump = d
			retained = d.Retained
			if d.Short() {
				r.warn(fmt.Sprintf("dump requested %d background images, only %d available", d.Requested, d.Available))
				r.log.LogDumpShort(ctx, d.Requested, d.Available)
			}
			return ctx.Err()
		})
		if err != nil {
			return err
		}
	}

	err = r.timed(ctx, StageValidate, func() error {
		v, err := validate.Run(res.Dataset, retained, o.minSamples)
		if err != nil {
			return err
		}
		res.Validation = v

		for _, rc := range v.Report.Removed {
			name := names[rc.ClassID]
			if name == "" {
				name = manifest.DefaultName(rc.ClassID)
			}
			r.log.LogRemovedClass(ctx, rc.ClassID, name, rc.ImageCount, o.minSamples)
		}
		o.metricsCollector.RecordClasses(v.Histogram.Len(), len(v.Report.Removed))

		if v.Histogram.Len() == 0 || v.Retained.IsEmpty() {
			return &InsufficientDataError{
				Classes:    v.Histogram.Len(),
				Images:     int(v.Retained.GetCardinality()),
				MinSamples: o.minSamples,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	v := res.Validation
	res.Classes = manifest.NewClassMapping(v.Histogram.Classes(), names)
	res.Table = manifest.Table(res.Classes, names)

	return r.timed(ctx, StagePartition, func() error {
		in := partition.Input{
			Dataset:   res.Dataset,
			Retained:  v.Retained,
			Histogram: v.Histogram,
			Keep:      v.Keep,
		}

		a, err := partition.Stratified(in, o.ratios, o.seed)
		if errors.Is(err, ErrStratificationInfeasible) {
			r.log.LogFallback(ctx, err)
			o.metricsCollector.RecordFallback()
			r.warn(fmt.Sprintf("random split used: %v", err))
			res.Fallback = true
			res.Mode = manifest.ModeFallback

			a, err = partition.Random(v.Retained, o.ratios, o.seed)
		}
		if err != nil {
			return err
		}

		res.Assignment = a
		res.Quality = partition.Evaluate(in, a)
		for _, s := range a.Splits() {
			o.metricsCollector.RecordSplit(s.String(), a.Size(s))
		}
		return nil
	})
}

func (r *runner) destination() blobstore.BlobStore {
	if r.opts.dest != nil {
		return r.opts.dest
	}
	dir := r.opts.outDir
	if dir == "" {
		dir = r.src
	}
	return blobstore.NewLocalStoreFS(r.opts.fsys, dir)
}

// prepare refuses to mix a new split into an old one.
func (r *runner) prepare(ctx context.Context, dst blobstore.BlobStore) error {
	existing, err := materialize.Existing(ctx, dst)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	if !r.opts.overwrite {
		return fmt.Errorf("%w: %d files in %s", ErrOutputExists, len(existing), blobstore.Location(dst))
	}

	r.log.InfoContext(ctx, "removing previous split", "files", len(existing))
	return materialize.Clear(ctx, dst)
}

// newController returns nil when no IO or memory limit is set.
func newController(o options) *resource.Controller {
	if o.ioLimit == 0 && o.memoryLimit == 0 {
		return nil
	}
	workers := o.workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return resource.NewController(resource.Config{
		MaxWorkers:         int64(workers),
		MemoryLimitBytes:   o.memoryLimit,
		IOLimitBytesPerSec: o.ioLimit,
	})
}

func (r *runner) materialize(ctx context.Context, dst blobstore.BlobStore) error {
	res := r.res
	mc := r.opts.metricsCollector

	jobs := materialize.Plan(res.Dataset, res.Assignment, res.Validation.Record)

	return r.timed(ctx, StageMaterialize, func() error {
		out, err := materialize.Materialize(ctx, r.opts.fsys, dst, jobs, materialize.Options{
			Workers:    r.opts.workers,
			Controller: r.rc,
			OnFile: func(e materialize.Event) {
				mc.RecordFile(e.Split.String(), e.Bytes, e.Err)
			},
		})
		if out != nil {
			res.Files = out.Files
			res.Bytes = out.Bytes
			res.Failures = out.Failures
		}
		r.log.LogMaterialize(ctx, res.Files, len(res.Failures), res.Bytes, err)
		if err != nil {
			return err
		}
		if n := len(res.Failures); n > 0 {
			r.warn(fmt.Sprintf("%d files could not be copied", n))
		}
		return nil
	})
}

func (r *runner) emit(ctx context.Context, dst blobstore.BlobStore) error {
	res := r.res
	o := r.opts

	return r.timed(ctx, StageManifest, func() error {
		written, err := manifest.Write(ctx, dst, res.Assignment.Splits(), res.Table)
		res.Written = written
		if err != nil {
			return err
		}

		report := &manifest.Report{
			RunID:      res.RunID,
			CreatedAt:  o.now().UTC(),
			Source:     r.src,
			Seed:       o.seed,
			MinSamples: o.minSamples,
			Ratios:     o.ratios,
			Mode:       res.Mode,
			Validation: res.Validation.Report,
			Classes:    res.Classes.Names(),
			Sizes:      res.Sizes(),
			Quality:    res.Quality,
			Warnings:   res.Warnings,
		}
		if d := res.Dump; d != nil {
			summary := &manifest.DumpSummary{Requested: d.Requested, Removed: make([]string, 0, len(d.Removed))}
			for _, idx := range d.Removed {
				summary.Removed = append(summary.Removed, res.Dataset.Image(idx).ID)
			}
			report.Dump = summary
		}
		for _, f := range res.Failures {
			report.Failures = append(report.Failures, f.Error())
		}

		if err := manifest.WriteReport(ctx, dst, report); err != nil {
			return err
		}
		res.Written = append(res.Written, manifest.ReportFile)
		return nil
	})
}

func (r *runner) archive(ctx context.Context, dst blobstore.BlobStore) error {
	return r.timed(ctx, StageArchive, func() error {
		files, err := materialize.Existing(ctx, dst)
		if err != nil {
			return err
		}
		names := append(append([]string{}, r.res.Written...), files...)

		var w io.Writer = r.opts.archive
		if r.rc != nil {
			w = resource.NewRateLimitedWriter(ctx, w, r.rc)
		}
		stats, err := archive.Write(ctx, w, dst, names, archive.Options{
			Codec: r.opts.archiveCodec,
		})
		if err != nil {
			return err
		}
		r.res.Archive = stats
		return nil
	})
}
