// Package minio writes splits into MinIO or any other S3-compatible server
// (Ceph, Garage, SeaweedFS) through the minio-go client.
//
//	store, err := minio.New(ctx, minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "datasets",
//	    Prefix:    "corals-v3",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := splitgo.Run(ctx, "/data/corals", splitgo.WithDestination(store))
//
// New creates the bucket when it is missing. Objects are uploaded with a
// content type derived from their extension, and clearing a previous split
// uses batched multi-object deletes.
//
// The CLI builds a Store from --dest minio://bucket/prefix and the
// --minio-* flags.
package minio
