package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/partition"
	"github.com/hupe1980/splitgo/validate"
)

// ReportFile is the name of the run report.
const ReportFile = "split_report.json"

// ReportVersion is the current report schema version.
const ReportVersion = 1

// Mode is the partitioning strategy that produced a split.
type Mode string

const (
	ModeStratified Mode = "stratified"
	ModeFallback   Mode = "fallback"
)

// DumpSummary records the background images removed before validation.
type DumpSummary struct {
	Requested int      `json:"requested"`
	Removed   []string `json:"removed"`
}

// Report records how a split was produced.
type Report struct {
	Version    int               `json:"version"`
	RunID      string            `json:"run_id"`
	CreatedAt  time.Time         `json:"created_at"`
	Source     string            `json:"source"`
	Seed       uint64            `json:"seed"`
	MinSamples int               `json:"min_samples"`
	Ratios     partition.Ratios  `json:"ratios"`
	Mode       Mode              `json:"mode"`
	Dump       *DumpSummary      `json:"dump,omitempty"`
	Validation validate.Report   `json:"validation"`
	Classes    map[int]string    `json:"classes"`
	Sizes      map[string]int    `json:"sizes"`
	Quality    *partition.Report `json:"quality,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Failures   []string          `json:"failures,omitempty"`
}

// WriteReport stores r as indented JSON.
func WriteReport(ctx context.Context, store blobstore.BlobStore, r *Report) error {
	r.Version = ReportVersion

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := store.Put(ctx, ReportFile, data); err != nil {
		return fmt.Errorf("manifest: write %s: %w", ReportFile, err)
	}
	return nil
}

// ReadReport loads the report from store.
func ReadReport(ctx context.Context, store blobstore.BlobStore) (*Report, error) {
	data, err := blobstore.ReadAll(ctx, store, ReportFile)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", ReportFile, err)
	}
	if r.Version != ReportVersion {
		return nil, fmt.Errorf("manifest: unsupported report version: %d (expected %d)", r.Version, ReportVersion)
	}
	return &r, nil
}
