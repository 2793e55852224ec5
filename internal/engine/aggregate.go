// Package engine implements the net-demand computation core: demand and
// stock aggregation, the replenishment calculation, exception detection, and
// supplier order export. Every function here is deterministic for a fixed
// input set so reprocessing a date reproduces byte-identical outputs.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/retailops/replenish/internal/storage"
)

// Options bounds aggregation fan-out and per-object store calls.
type Options struct {
	WorkerCount int
	OpTimeout   time.Duration
}

func (o Options) workers() int {
	if o.WorkerCount < 1 {
		return 1
	}
	return o.WorkerCount
}

func (o Options) timeout() time.Duration {
	if o.OpTimeout <= 0 {
		return 30 * time.Second
	}
	return o.OpTimeout
}

// AggregateStats reports how many raw files contributed to an aggregate.
type AggregateStats struct {
	FilesRead    int
	FilesSkipped int
}

// fileResult carries one file's contribution out of the worker pool.
type fileResult struct {
	key     string
	counts  map[string]int
	excs    []excEntry
	skipped bool
}

type excEntry struct {
	sku    string
	detail string
}

// forEachObject fans a partition's objects out to a bounded worker pool and
// collects per-file results. Workers never abort the batch: a bad file is
// reported through its fileResult, not an error.
func forEachObject(ctx context.Context, store storage.EventStore, objects []storage.ObjectInfo, opts Options, fn func(ctx context.Context, key string) fileResult) ([]fileResult, error) {
	jobChan := make(chan storage.ObjectInfo, len(objects))
	results := make([]fileResult, 0, len(objects))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := 0; i < opts.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range jobChan {
				opCtx, cancel := context.WithTimeout(ctx, opts.timeout())
				res := fn(opCtx, obj.Key)
				cancel()

				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, obj := range objects {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return nil, ctx.Err()
		case jobChan <- obj:
		}
	}
	close(jobChan)
	wg.Wait()

	// Worker completion order is nondeterministic; re-sort by key so the
	// merged aggregate and its exceptions are stable across runs.
	sort.Slice(results, func(i, j int) bool { return results[i].key < results[j].key })

	return results, nil
}
