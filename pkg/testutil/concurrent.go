package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"fithub/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes     int32
	Errors        int32
	InvalidStates int32
	NotFounds     int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.InvalidStates + r.NotFounds
}

// RunConcurrent executes fn in parallel goroutines, released together, and
// buckets the results by sentinel error.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                 sync.WaitGroup
		start                              = make(chan struct{})
		successes, errs, invalid, notFound atomic.Int32
	)

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				invalid.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				notFound.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		Errors:        errs.Load(),
		InvalidStates: invalid.Load(),
		NotFounds:     notFound.Load(),
	}
}
