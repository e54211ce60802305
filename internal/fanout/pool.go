// Package fanout runs a per-issue pipeline over many issue keys with a
// bounded worker pool, isolating per-issue failures and reporting progress.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/hylla/sojourn/internal/domain"
)

// DefaultWorkers bounds simultaneous fetches against the remote tracker's
// rate limit when the caller does not choose a pool size.
const DefaultWorkers = 12

// Progress is invoked after every completed key, success or failure. The
// done values across invocations are monotonically non-decreasing, though
// calls from racing workers may be observed out of order.
type Progress func(stage string, done, total int)

// FetchFunc retrieves one issue by key. It is the only stage allowed to
// block on I/O; cancellation is the fetcher's responsibility via ctx.
type FetchFunc func(ctx context.Context, key string) (domain.IssueRecord, error)

// PipelineFunc transforms a fetched record into its result. It must be pure
// computation over the record, never I/O.
type PipelineFunc func(rec domain.IssueRecord) domain.IssueResult

// Pool is a fixed-size worker pool over a shared key queue. The zero value
// is usable: DefaultWorkers workers, no progress reporting.
type Pool struct {
	Workers  int
	Stage    string
	Progress Progress
}

// Run processes every key and returns one result per key. A fetch or
// pipeline failure for one key is recorded in that key's result and never
// stops the batch. Run blocks until all keys are claimed and all in-flight
// workers finish. Result order is not the key order; callers needing
// determinism sort by key afterward.
func (p Pool) Run(ctx context.Context, keys []string, fetch FetchFunc, pipeline PipelineFunc) []domain.IssueResult {
	results := make([]domain.IssueResult, 0, len(keys))
	for res := range p.RunStream(ctx, keys, fetch, pipeline) {
		results = append(results, res)
	}
	return results
}

// RunStream is Run with incremental delivery: results arrive on a bounded
// channel as workers finish them, so a consumer can write output without
// buffering the whole batch. The channel is closed once every key has been
// processed.
func (p Pool) RunStream(ctx context.Context, keys []string, fetch FetchFunc, pipeline PipelineFunc) <-chan domain.IssueResult {
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(keys) && len(keys) > 0 {
		workers = len(keys)
	}

	queue := make(chan string, len(keys))
	for _, key := range keys {
		queue <- key
	}
	close(queue)

	out := make(chan domain.IssueResult, workers)
	total := len(keys)

	var (
		mu   sync.Mutex
		done int
	)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range queue {
				res := p.process(ctx, key, fetch, pipeline)

				mu.Lock()
				done++
				d := done
				mu.Unlock()

				out <- res
				if p.Progress != nil {
					p.Progress(p.Stage, d, total)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// process runs the fetch and pipeline for one key, converting any failure
// into a result carrying the error and empty metrics.
func (p Pool) process(ctx context.Context, key string, fetch FetchFunc, pipeline PipelineFunc) domain.IssueResult {
	rec, err := fetch(ctx, key)
	if err != nil {
		return domain.IssueResult{Key: key, Err: fmt.Errorf("fetch %s: %w", key, err)}
	}
	res := pipeline(rec)
	if res.Key == "" {
		res.Key = key
	}
	return res
}
