package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/label"
	"github.com/hupe1980/splitgo/manifest"
	"github.com/hupe1980/splitgo/partition"
	"github.com/hupe1980/splitgo/resource"
	"golang.org/x/sync/errgroup"
)

// Job is one image/label pair to copy.
type Job struct {
	Split partition.Split
	Image *label.Image
	// Record holds the annotations to write. When it has as many annotations
	// as Image.Record, the source label file is copied verbatim.
	Record label.Record
}

// ImageName returns the destination name of the job's image.
func (j Job) ImageName() string {
	return path.Join(manifest.ImagesDir(j.Split), filepath.Base(j.Image.ImagePath))
}

// LabelName returns the destination name of the job's label file.
func (j Job) LabelName() string {
	return path.Join(manifest.LabelsDir(j.Split), j.Image.ID+label.LabelExtension)
}

func (j Job) verbatim() bool {
	return j.Image.LabelPath != "" && len(j.Record.Annotations) == len(j.Image.Record.Annotations)
}

// Plan lists the copy jobs of an assignment, ordered by split and image
// index. record returns the annotations to keep for an image; nil keeps all.
func Plan(ds *label.Dataset, a *partition.Assignment, record func(*label.Image) label.Record) []Job {
	jobs := make([]Job, 0, a.Len())
	for _, s := range partition.Splits {
		it := a.Images(s).Iterator()
		for it.HasNext() {
			img := ds.Image(it.Next())
			rec := img.Record
			if record != nil {
				rec = record(img)
			}
			jobs = append(jobs, Job{Split: s, Image: img, Record: rec})
		}
	}
	return jobs
}

// Event reports the outcome of one file copy.
type Event struct {
	Split partition.Split
	Name  string
	Bytes int64
	Err   error
}

// Options configures Materialize.
type Options struct {
	// Workers bounds concurrent jobs. Zero means Controller.Workers() when a
	// controller is set, else runtime.NumCPU().
	Workers int
	// Controller throttles IO and label buffers. Optional.
	Controller *resource.Controller
	// OnFile is called after every file copy. It must be safe for
	// concurrent use.
	OnFile func(Event)
}

// Result summarises a run.
type Result struct {
	Files    int
	Bytes    int64
	Failures []*IOFailure
}

// Materialize copies jobs from src into dst.
//
// Per-file errors are collected in Result.Failures, sorted by split and
// path. The returned error is non-nil only if ctx is canceled or if every
// file failed (ErrAllFailed).
func Materialize(ctx context.Context, src fs.FileSystem, dst blobstore.BlobStore, jobs []Job, opts Options) (*Result, error) {
	if src == nil {
		src = fs.Default
	}

	workers := opts.Workers
	if workers <= 0 {
		if opts.Controller != nil {
			workers = opts.Controller.Workers()
		} else {
			workers = runtime.NumCPU()
		}
	}

	c := &copier{src: src, dst: dst, rc: opts.Controller, onFile: opts.OnFile}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.run(gctx, job)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := &Result{
		Files:    int(c.files.Load()),
		Bytes:    c.bytes.Load(),
		Failures: c.failures,
	}
	sortFailures(res.Failures)

	if err != nil {
		return res, err
	}
	if len(jobs) > 0 && res.Files == 0 {
		return res, fmt.Errorf("%w: %w", ErrAllFailed, Join(res.Failures))
	}
	return res, nil
}

type copier struct {
	src    fs.FileSystem
	dst    blobstore.BlobStore
	rc     *resource.Controller
	onFile func(Event)

	files atomic.Int64
	bytes atomic.Int64

	mu       sync.Mutex
	failures []*IOFailure
}

func (c *copier) run(ctx context.Context, job Job) {
	name := job.ImageName()
	n, err := c.copyFile(ctx, job.Image.ImagePath, name)
	c.record(job.Split, name, n, err)

	name = job.LabelName()
	if job.verbatim() {
		n, err = c.copyFile(ctx, job.Image.LabelPath, name)
	} else {
		n, err = c.writeLabel(ctx, job.Record, name)
	}
	c.record(job.Split, name, n, err)
}

func (c *copier) record(s partition.Split, name string, n int64, err error) {
	if err != nil {
		c.mu.Lock()
		c.failures = append(c.failures, &IOFailure{Split: s, Path: name, Err: err})
		c.mu.Unlock()
	} else {
		c.files.Add(1)
		c.bytes.Add(n)
	}
	if c.onFile != nil {
		c.onFile(Event{Split: s, Name: name, Bytes: n, Err: err})
	}
}

func (c *copier) copyFile(ctx context.Context, srcPath, name string) (int64, error) {
	if err := c.rc.AcquireWorker(ctx); err != nil {
		return 0, err
	}
	defer c.rc.ReleaseWorker()

	in, err := c.src.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := c.dst.Create(ctx, name)
	if err != nil {
		return 0, err
	}

	var r io.Reader = in
	if c.rc != nil {
		r = resource.NewRateLimitedReader(ctx, in, c.rc)
	}

	n, err := io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	if err != nil {
		abort(out)
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}
	return n, nil
}

func (c *copier) writeLabel(ctx context.Context, rec label.Record, name string) (int64, error) {
	text := rec.Text()
	size := int64(len(text))

	if err := c.rc.AcquireMemory(ctx, size); err != nil {
		return 0, err
	}
	defer c.rc.ReleaseMemory(size)

	if err := c.rc.AcquireIO(ctx, len(text)); err != nil {
		return 0, err
	}
	if err := c.dst.Put(ctx, name, []byte(text)); err != nil {
		return 0, err
	}
	return size, nil
}

func abort(w blobstore.WritableBlob) {
	if a, ok := w.(blobstore.Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}

// Clear removes the split trees and manifests of a previous run from dst.
func Clear(ctx context.Context, dst blobstore.BlobStore) error {
	var errs []error
	for _, prefix := range managedPrefixes() {
		if _, err := blobstore.DeletePrefix(ctx, dst, prefix); err != nil {
			errs = append(errs, fmt.Errorf("materialize: clear %s: %w", prefix, err))
		}
	}
	return errors.Join(errs...)
}

// Existing returns the names of split tree files already present in dst.
// Manifests are not reported; a source directory commonly carries its own
// data.yaml.
func Existing(ctx context.Context, dst blobstore.BlobStore) ([]string, error) {
	var out []string
	for _, s := range partition.Splits {
		names, err := dst.List(ctx, s.String()+"/")
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

func managedPrefixes() []string {
	out := make([]string, 0, len(partition.Splits)+3)
	for _, s := range partition.Splits {
		out = append(out, s.String()+"/")
	}
	return append(out, manifest.DataFile, manifest.TestFile, manifest.ReportFile)
}
