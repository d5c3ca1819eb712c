// Package resource limits the resources a materialization run may use.
//
// A Controller manages three budgets:
//
//   - Workers: a weighted semaphore bounding concurrent file copies
//   - Memory: bytes held by rewritten label files (blocking acquire)
//   - IO: a token bucket capping copy throughput in bytes per second
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    MaxWorkers:         8,
//	    IOLimitBytesPerSec: 50 << 20, // 50MB/s
//	})
//
//	r := resource.NewRateLimitedReader(ctx, src, rc)     // image copies
//	w := resource.NewRateLimitedWriter(ctx, archive, rc) // split archive
//
// Requests larger than the limiter burst are split into burst-sized chunks.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
