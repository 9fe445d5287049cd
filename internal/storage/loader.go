package storage

import (
	"context"
	"fmt"
	"time"

	"bggetl/internal/logging"
)

// CopyFn inserts rows aligned to columns and reports how many were written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains in, groups rows into batches of batchSize and calls
// copyFn for each non-empty batch. It returns the running total and the first
// error; on cancellation it returns ctx.Err().
func LoadBatches(
	ctx context.Context,
	log *logging.Logger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	log = logging.Or(log)

	var (
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Error("copy failed", "inserted", n, "total", total, "error", err)
			return err
		}

		batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		log.Debug("batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlush = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
