// Package worker runs batch jobs (enrollment sync, roster import) on a bounded goroutine pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Summary counts the outcome of a batch.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int // returned ErrSkip or never started because ctx was cancelled
}

// ErrSkip can be returned by a job that decided there was nothing to do.
// Skipped jobs are counted separately from failures.
var ErrSkip = errors.New("skipped")

// Run calls fn for every item on a pool of size workers and waits for all of them.
// done, if not nil, is called after each item with its error; calls are serialized.
// A panicking job is counted as failed.
// Items not yet started when ctx is cancelled are counted as skipped.
func Run[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error, done func(T, error)) (Summary, error) {
	var summary Summary
	if len(items) == 0 {
		return summary, nil
	}
	if workers < 1 {
		workers = 1
	}

	pool, err := ants.NewPool(min(workers, len(items)))
	if err != nil {
		return summary, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var mu sync.Mutex
	var wg sync.WaitGroup
	finish := func(item T, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			summary.Succeeded++
		case errors.Is(err, ErrSkip):
			summary.Skipped++
		default:
			summary.Failed++
		}
		if done != nil {
			done(item, err)
		}
	}

	for _, item := range items {
		if ctx.Err() != nil {
			finish(item, ErrSkip)
			continue
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				finish(item, ErrSkip)
				return
			}
			finish(item, call(ctx, fn, item))
		})
		if submitErr != nil {
			wg.Done()
			finish(item, fmt.Errorf("submit job: %w", submitErr))
		}
	}
	wg.Wait()

	return summary, ctx.Err()
}

// call runs fn and reports a panic as the job's error.
func call[T any](ctx context.Context, fn func(context.Context, T) error, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx, item)
}
