// Package dispatch runs independent requests against an external service with
// a hard cap on how many are outstanding at once.
//
// A Dispatcher is built per invocation and passed to the pipelines that need
// it; there is no package-level client or semaphore. Map scatters work items
// across goroutines and gathers results back into input order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aisubs/internal/logging"
	"aisubs/internal/services"
)

// Dispatcher bounds concurrent work to a fixed limit.
type Dispatcher struct {
	limit  int
	logger *slog.Logger
}

// New constructs a Dispatcher. Limits below one are raised to one.
func New(limit int, logger *slog.Logger) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{limit: limit, logger: logging.NewComponentLogger(logger, "dispatch")}
}

// Limit returns the maximum number of concurrently outstanding requests.
func (d *Dispatcher) Limit() int {
	return d.limit
}

// ItemError records which work item failed.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Map calls fn for every item with at most d.Limit() calls in flight and
// returns results in input order. The first failure, by completion order,
// cancels the context handed to the remaining calls; Map waits for every
// started call to return before reporting it wrapped in
// services.ErrDispatchFailure. No results are returned on failure.
func Map[T, R any](ctx context.Context, d *Dispatcher, items []T, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	if d == nil {
		d = New(1, nil)
	}
	if len(items) == 0 {
		return []R{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		results  = make([]R, len(items))
		slots    = make(chan struct{}, d.limit)
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()
	logger.Debug("dispatch started", logging.Int("items", len(items)), logging.Int("limit", d.limit))

launch:
	for i, item := range items {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			break launch
		}
		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			defer func() { <-slots }()
			if ctx.Err() != nil {
				return
			}
			itemCtx := services.WithChunkIndex(ctx, index)
			result, err := fn(itemCtx, index, item)
			if err != nil {
				fail(&ItemError{Index: index, Err: err})
				return
			}
			results[index] = result
		}(i, item)
	}
	wg.Wait()

	if firstErr == nil {
		if err := ctx.Err(); err != nil {
			// The parent context ended before every item ran.
			firstErr = err
		}
	}
	if firstErr != nil {
		logger.Debug("dispatch aborted", logging.Error(firstErr), logging.Duration("elapsed", time.Since(started)))
		if !isItemError(firstErr) {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: %w", services.ErrDispatchFailure, firstErr)
	}

	logger.Debug("dispatch complete", logging.Int("items", len(items)), logging.Duration("elapsed", time.Since(started)))
	return results, nil
}

func isItemError(err error) bool {
	var itemErr *ItemError
	return errors.As(err, &itemErr)
}
