package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/VisionKernel/Centerspoke/internal/logging"
)

// CopyFn writes one batch of rows and returns how many were written.
type CopyFn func(ctx context.Context, rows [][]any) (int64, error)

// LoadBatches splits rows into batches of batchSize and calls copyFn for each,
// stopping at the first error. It returns the running total and that error.
//
// A debug progress line is logged per batch with the instantaneous rows/sec.
func LoadBatches(ctx context.Context, rows [][]any, batchSize int, copyFn CopyFn) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	log := logging.FromContext(ctx)

	var (
		total   int64
		batches int
		start   = time.Now()
		last    = start
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))
		n, err := copyFn(ctx, rows[lo:hi])
		total += n
		if err != nil {
			log.Warn("loader: batch failed", "batch", batches+1, "written", n, "total", total, "error", err)
			return total, err
		}
		batches++
		now := time.Now()
		rps := float64(0)
		if d := now.Sub(last); d > 0 {
			rps = float64(n) / d.Seconds()
		}
		log.Debug("loader: batch written",
			"batch", batches,
			"rps", int64(rps),
			"written", n,
			"total", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		last = now
	}
	return total, nil
}
