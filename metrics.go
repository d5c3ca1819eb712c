package splitgo

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stage identifies a step of the partition pipeline.
type Stage int

const (
	StageIndex Stage = iota
	StageDump
	StageValidate
	StagePartition
	StageMaterialize
	StageManifest
	StageArchive
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageIndex, StageDump, StageValidate, StagePartition, StageMaterialize, StageManifest, StageArchive}

func (s Stage) String() string {
	switch s {
	case StageIndex:
		return "index"
	case StageDump:
		return "dump"
	case StageValidate:
		return "validate"
	case StagePartition:
		return "partition"
	case StageMaterialize:
		return "materialize"
	case StageManifest:
		return "manifest"
	case StageArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// MetricsCollector defines an interface for collecting run metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see package promcollector).
type MetricsCollector interface {
	// RecordStage is called after each pipeline stage.
	// err is nil if the stage succeeded.
	RecordStage(stage Stage, duration time.Duration, err error)

	// RecordFile is called after each materialized file.
	RecordFile(split string, bytes int64, err error)

	// RecordClasses is called once validation reached its fixpoint.
	RecordClasses(retained, removed int)

	// RecordSplit is called once per active split with its image count.
	RecordSplit(split string, images int)

	// RecordFallback is called when stratification was infeasible.
	RecordFallback()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStage(Stage, time.Duration, error) {}
func (NoopMetricsCollector) RecordFile(string, int64, error)         {}
func (NoopMetricsCollector) RecordClasses(int, int)                  {}
func (NoopMetricsCollector) RecordSplit(string, int)                 {}
func (NoopMetricsCollector) RecordFallback()                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	StageCount      atomic.Int64
	StageErrors     atomic.Int64
	StageTotalNanos atomic.Int64
	FileCount       atomic.Int64
	FileErrors      atomic.Int64
	FileBytes       atomic.Int64
	ClassesRetained atomic.Int64
	ClassesRemoved  atomic.Int64
	FallbackCount   atomic.Int64

	mu    sync.Mutex
	sizes map[string]int
}

// RecordStage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStage(_ Stage, duration time.Duration, err error) {
	b.StageCount.Add(1)
	b.StageTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.StageErrors.Add(1)
	}
}

// RecordFile implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFile(_ string, bytes int64, err error) {
	b.FileCount.Add(1)
	if err != nil {
		b.FileErrors.Add(1)
		return
	}
	b.FileBytes.Add(bytes)
}

// RecordClasses implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClasses(retained, removed int) {
	b.ClassesRetained.Store(int64(retained))
	b.ClassesRemoved.Store(int64(removed))
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit(split string, images int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sizes == nil {
		b.sizes = make(map[string]int)
	}
	b.sizes[split] = images
}

// RecordFallback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFallback() {
	b.FallbackCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.mu.Lock()
	sizes := make(map[string]int, len(b.sizes))
	for k, v := range b.sizes {
		sizes[k] = v
	}
	b.mu.Unlock()

	return BasicMetricsStats{
		StageCount:      b.StageCount.Load(),
		StageErrors:     b.StageErrors.Load(),
		StageAvgNanos:   b.getAvgStageNanos(),
		FileCount:       b.FileCount.Load(),
		FileErrors:      b.FileErrors.Load(),
		FileBytes:       b.FileBytes.Load(),
		ClassesRetained: b.ClassesRetained.Load(),
		ClassesRemoved:  b.ClassesRemoved.Load(),
		FallbackCount:   b.FallbackCount.Load(),
		SplitSizes:      sizes,
	}
}

func (b *BasicMetricsCollector) getAvgStageNanos() int64 {
	count := b.StageCount.Load()
	if count == 0 {
		return 0
	}
	return b.StageTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	StageCount      int64
	StageErrors     int64
	StageAvgNanos   int64
	FileCount       int64
	FileErrors      int64
	FileBytes       int64
	ClassesRetained int64
	ClassesRemoved  int64
	FallbackCount   int64
	SplitSizes      map[string]int
}
