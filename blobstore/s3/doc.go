// Package s3 writes splits into an Amazon S3 bucket with aws-sdk-go-v2.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/corals-v3"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	res, err := splitgo.Run(ctx, "/data/corals", splitgo.WithDestination(store))
//
// Images and label files stream through the multipart upload manager with
// CRC32C checksums; manifests go up in a single PutObject. Every object
// carries a content type derived from its extension. Clearing a previous
// split lists the prefix and removes it with DeleteObjects batches of 1000.
//
// WithEndpoint targets S3-compatible servers and switches to path-style
// addressing. The CLI builds a Store from --dest s3://bucket/prefix.
package s3
