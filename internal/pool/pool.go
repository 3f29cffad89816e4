// Package pool schedules independent work items across a bounded number of
// goroutines. It exists so that multipart transfers can keep a fixed number
// of parts in flight regardless of how many parts an object has.
package pool

import (
	"context"
	"sync"
)

// Map runs fn over every item with at most concurrency invocations in flight,
// returning the results in the order of the input items. The first error
// stops admission of further items, already-running invocations finish, and
// that first error is returned. A canceled ctx stops admission the same way.
func Map[T, R any](ctx context.Context, concurrency int, items []T, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make([]R, len(items))
	sem := make(chan struct{}, concurrency)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			r, err := fn(ctx, i, item)
			if err != nil {
				fail(err)
				return
			}
			results[i] = r
		}(i, item)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
