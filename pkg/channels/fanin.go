// Package channels provides small generic channel helpers.
package channels

import (
	"context"
	"sync"
)

// FanIn runs one worker goroutine per input and delivers every result on the
// returned channel. The channel is closed once all workers have finished, so
// ranging over it observes exactly one result per input, in completion order.
func FanIn[T, R any](ctx context.Context, inputs []T, work func(ctx context.Context, input T) R) <-chan R {
	results := make(chan R, len(inputs))

	var wg sync.WaitGroup
	for _, input := range inputs {
		wg.Add(1)
		go func(input T) {
			defer wg.Done()
			results <- work(ctx, input)
		}(input)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
