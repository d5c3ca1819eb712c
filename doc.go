// Package splitgo partitions an object-detection dataset into train, valid
// and test splits while preserving per-class frequencies.
//
// The source corpus is a flat pair of directories, one label file per image:
//
//	<src>/all_images/img_001.jpg
//	<src>/all_labels/img_001.txt   # "<class_id> <x> <y> <w> <h> ..." per line
//
// # Quick Start
//
//	ctx := context.Background()
//	res, err := splitgo.Run(ctx, "./dataset",
//	    splitgo.WithRatios(0.2, 0.1),
//	    splitgo.WithMinSamples(10),
//	    splitgo.WithSeed(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Mode, res.Sizes())
//
// Run writes <out>/{train,valid,test}/{images,labels}/, a data.yaml (and a
// test.yaml when a test split exists) and split_report.json. The output
// defaults to the source directory; use WithOutputDir or WithDestination to
// write elsewhere, e.g. into an S3 bucket:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("datasets/v3"))
//	res, err := splitgo.Run(ctx, "./dataset", splitgo.WithDestination(store))
//
// # Pipeline
//
//  1. Index: pair images with label files and parse every label line.
//  2. Dump (optional): discard a seeded random subset of background images.
//  3. Validate: drop classes seen in fewer than min_samples images, and the
//     images left without any surviving annotation, until nothing changes.
//  4. Partition: greedy multi-label stratification. If some class cannot
//     reach every split, fall back to a seeded random split and report a
//     warning (Result.Fallback).
//  5. Materialize: copy images and write filtered label files concurrently.
//  6. Emit manifests and the run report; optionally archive the split.
//
// Plan runs steps 1 to 4 without writing anything.
//
// # Determinism
//
// The same corpus, options and seed always produce the same split. Each
// random decision draws from its own PCG stream derived from the seed.
//
// # Errors
//
// Malformed label lines (*FormatError), pairing violations in strict mode
// (*ConsistencyError) and ErrInsufficientData abort before anything is
// written. Per-file copy failures are collected in Result.Failures.
package splitgo
