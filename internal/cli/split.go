package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/splitgo"
	"github.com/hupe1980/splitgo/archive"
	"github.com/hupe1980/splitgo/blobstore"
	miniostore "github.com/hupe1980/splitgo/blobstore/minio"
	s3store "github.com/hupe1980/splitgo/blobstore/s3"
	"github.com/hupe1980/splitgo/internal/config"
	"github.com/hupe1980/splitgo/promcollector"
	"github.com/spf13/cobra"
)

func newSplitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Partition a dataset and materialize the split",
		Long: `Partition the images below --src into train, valid and test splits.

Classes seen in fewer than --min-samples images are dropped first. If some
retained class cannot reach every split, a seeded random split is used and
reported as a warning.`,
		Args: cobra.NoArgs,
		RunE: runSplit,
	}

	addSourceFlags(cmd)
	f := cmd.Flags()
	f.String("out", "", "output directory (default --src)")
	f.String("dest", "", "object storage destination, s3://bucket/prefix or minio://bucket/prefix")
	f.Float64("valid", splitgo.DefaultValidRatio, "fraction of images in the valid split")
	f.Float64("test", 0, "fraction of images in the test split")
	f.Uint64("seed", splitgo.DefaultSeed, "seed of every random decision")
	f.Int("dump", 0, "number of background images to discard")
	f.Int("workers", 0, "concurrent file copies (default number of CPUs)")
	f.Int64("io-limit", 0, "copy throughput limit in bytes per second")
	f.Bool("overwrite", false, "replace a split left by an earlier run")
	f.Bool("dry-run", false, "plan the split and print it without writing")
	f.String("archive", "", "also write the split as a tar archive to this file")
	f.String("archive-codec", "zstd", "archive compression: zstd, lz4 or none")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")

	f.String("minio-endpoint", "localhost:9000", "MinIO endpoint for minio:// destinations")
	f.String("minio-access-key", "", "MinIO access key")
	f.String("minio-secret-key", "", "MinIO secret key")
	f.Bool("minio-use-ssl", false, "use TLS for MinIO")
	f.String("minio-region", "", "MinIO region")
	f.String("s3-region", "", "AWS region for s3:// destinations")
	f.String("s3-endpoint", "", "custom S3 endpoint")
	return cmd
}

func runSplit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg.Log)

	opts := []splitgo.Option{
		splitgo.WithLogger(log),
		splitgo.WithRatios(cfg.Valid, cfg.Test),
		splitgo.WithMinSamples(cfg.MinSamples),
		splitgo.WithSeed(cfg.Seed),
		splitgo.WithDump(cfg.Dump),
		splitgo.WithStrict(cfg.Strict),
		splitgo.WithWorkers(cfg.Workers),
		splitgo.WithIOLimit(cfg.IOLimit),
		splitgo.WithOverwrite(cfg.Overwrite),
	}

	var collector *promcollector.Collector
	if cfg.MetricsFile != "" {
		collector = promcollector.New()
		opts = append(opts, splitgo.WithMetricsCollector(collector))
	}

	if cfg.DryRun {
		res, err := splitgo.Plan(ctx, cfg.Source, opts...)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), res, true)
		return writeMetrics(collector, cfg.MetricsFile)
	}

	dest, err := openDestination(ctx, cfg)
	if err != nil {
		return err
	}
	switch {
	case dest != nil:
		opts = append(opts, splitgo.WithDestination(dest))
	case cfg.Out != "":
		opts = append(opts, splitgo.WithOutputDir(cfg.Out))
	}

	var archiveFile *os.File
	if cfg.Archive != "" {
		codec, err := codecFor(cfg.Archive, cfg.ArchiveCodec)
		if err != nil {
			return err
		}
		archiveFile, err = os.Create(cfg.Archive)
		if err != nil {
			return fmt.Errorf("create archive: %w", err)
		}
		opts = append(opts, splitgo.WithArchive(archiveFile, codec))
	}

	res, runErr := splitgo.Run(ctx, cfg.Source, opts...)

	if archiveFile != nil {
		if err := archiveFile.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close archive: %w", err)
		}
		if runErr != nil {
			_ = os.Remove(cfg.Archive)
		}
	}
	if err := writeMetrics(collector, cfg.MetricsFile); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	printSummary(cmd.OutOrStdout(), res, false)
	return nil
}

// openDestination returns nil when the split goes to the local filesystem.
func openDestination(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	d, ok, err := cfg.Destination()
	if err != nil || !ok {
		return nil, err
	}

	switch d.Scheme {
	case "s3":
		return s3store.New(ctx, d.Bucket,
			s3store.WithPrefix(d.Prefix),
			s3store.WithRegion(cfg.S3.Region),
			s3store.WithEndpoint(cfg.S3.Endpoint),
		)
	case "minio":
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Region:    cfg.MinIO.Region,
			Bucket:    d.Bucket,
			Prefix:    d.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported destination scheme %q", d.Scheme)
	}
}

// codecFor prefers the codec implied by the archive file name.
func codecFor(file, fallback string) (archive.Codec, error) {
	if c := archive.DetectCodec(file); c != archive.CodecNone || strings.HasSuffix(file, ".tar") {
		return c, nil
	}
	return archive.ParseCodec(fallback)
}

func writeMetrics(c *promcollector.Collector, file string) error {
	if c == nil {
		return nil
	}
	if err := c.WriteTextfile(file); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, res *splitgo.Result, dryRun bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "run\t%s\n", res.RunID)
	fmt.Fprintf(tw, "mode\t%s\n", res.Mode)
	if dryRun {
		fmt.Fprintf(tw, "location\t(dry run)\n")
	} else {
		fmt.Fprintf(tw, "location\t%s\n", res.Location)
	}

	sizes := res.Sizes()
	splits := make([]string, 0, len(sizes))
	for s := range sizes {
		splits = append(splits, s)
	}
	sort.Strings(splits)
	for _, s := range splits {
		fmt.Fprintf(tw, "%s\t%d images\n", s, sizes[s])
	}

	if v := res.Validation; v != nil {
		for _, rc := range v.Report.Removed {
			name, ok := res.Table.Name(rc.ClassID)
			if !ok {
				name = fmt.Sprint(rc.ClassID)
			}
			fmt.Fprintf(tw, "removed\t%s (%d images)\n", name, rc.ImageCount)
		}
	}
	if !dryRun {
		fmt.Fprintf(tw, "files\t%d (%d bytes)\n", res.Files, res.Bytes)
		if n := len(res.Failures); n > 0 {
			fmt.Fprintf(tw, "failures\t%d\n", n)
		}
		if res.Archive != nil {
			fmt.Fprintf(tw, "archive\t%d files, %d bytes\n", res.Archive.Files, res.Archive.Bytes)
		}
	}
	for _, msg := range res.Warnings {
		fmt.Fprintf(tw, "warning\t%s\n", msg)
	}
}
