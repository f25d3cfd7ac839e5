// Package batch runs a decode-and-summarize job over many dumps
// concurrently: a bounded worker pool plus an optional rate limiter,
// grounded on the teacher's FlowWriter semaphore/limiter pattern but
// simplified to a fixed job list instead of a streaming channel.
package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// DecodeFunc decodes a single dump/log file and returns its analyzer
// summary as pretty-printed JSON.
type DecodeFunc func(ctx context.Context, path string) ([]byte, error)

// Result is one job's outcome.
type Result struct {
	Path    string
	Summary []byte
	Err     error
}

// Runner decodes a fixed list of paths with bounded concurrency and an
// optional QPS cap.
type Runner struct {
	concurrency int
	limiter     *rate.Limiter

	stats struct {
		succeeded atomic.Int64
		failed    atomic.Int64
	}
}

// NewRunner builds a Runner. concurrency <= 0 runs one job at a time; qps
// <= 0 means unlimited.
func NewRunner(concurrency, qps int) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), qps)
	}
	return &Runner{concurrency: concurrency, limiter: limiter}
}

// Stats returns the count of jobs that succeeded and failed so far.
func (r *Runner) Stats() (succeeded, failed int64) {
	return r.stats.succeeded.Load(), r.stats.failed.Load()
}

// Run decodes every path in paths, at most r.concurrency at a time, and
// returns one Result per path in the same order paths were given.
func (r *Runner) Run(ctx context.Context, paths []string, decode DecodeFunc) []Result {
	results := make([]Result, len(paths))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := r.limiter.Wait(ctx); err != nil {
				results[i] = Result{Path: path, Err: err}
				r.stats.failed.Add(1)
				return
			}

			summary, err := decode(ctx, path)
			if err != nil {
				results[i] = Result{Path: path, Err: err}
				r.stats.failed.Add(1)
				return
			}
			results[i] = Result{Path: path, Summary: summary}
			r.stats.succeeded.Add(1)
		}(i, path)
	}

	wg.Wait()
	return results
}
