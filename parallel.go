package bhtsne

import "golang.org/x/sync/errgroup"

// rowRange is a contiguous block of rows owned by one worker.
type rowRange struct {
	worker     int
	start, end int
}

// splitRows divides n rows into at most numWorkers contiguous ranges.
// Ranges never overlap, so workers can write their own rows without
// synchronization.
func splitRows(n, numWorkers int) []rowRange {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if n == 0 {
		return nil
	}
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	ranges := make([]rowRange, 0, numWorkers)
	for w := 0; w < numWorkers; w++ {
		start := w * rowsPerWorker
		if start >= n {
			break
		}
		end := min(start+rowsPerWorker, n)
		ranges = append(ranges, rowRange{worker: w, start: start, end: end})
	}
	return ranges
}

// forEachRowRange runs fn over every row range. With one range (or one
// worker) it runs on the calling goroutine. The first error wins; the other
// workers still run to completion because they hold no cancellation point
// mid-row.
func forEachRowRange(n, numWorkers int, fn func(r rowRange) error) error {
	ranges := splitRows(n, numWorkers)
	if len(ranges) <= 1 {
		for _, r := range ranges {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for _, r := range ranges {
		g.Go(func() error { return fn(r) })
	}
	return g.Wait()
}
