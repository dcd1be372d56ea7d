// Package batch fans an operation out over a collection, one goroutine per
// item, and aggregates every failure instead of surfacing only the first.
package batch

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Run invokes fn once per item on its own goroutine and joins them all. A
// failing item never prevents the others from completing. The returned
// error aggregates per-item failures in item order, or is nil when every
// invocation succeeded. Panics inside a worker are captured as errors so
// they surface to the caller instead of killing the process.
func Run[T any](items []T, fn func(T) error) error {
	errs := make([]error, len(items))

	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)

		go func(i int, item T) {
			defer wg.Done()

			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("worker panic: %v", r)
				}
			}()

			errs[i] = fn(item)
		}(i, item)
	}

	wg.Wait()

	var result *multierror.Error

	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
