// Package batch runs a function over a list of inputs with a fixed number of
// workers, stopping at the first failure.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Func processes one item.
type Func func(ctx context.Context, item string) error

// ErrCancelled is returned by the producer when the context ends before all
// items were handed out.
var ErrCancelled = errors.New("batch cancelled")

// Run calls fn for every item using the given number of workers. The first
// error cancels the remaining work and is returned, prefixed with its item.
func Run(ctx context.Context, items []string, workers int, fn Func) error {
	if workers < 1 {
		workers = 1
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	in, errc := produce(ctx, items)
	errcList = append(errcList, errc)

	for i := 0; i < workers; i++ {
		errcList = append(errcList, worker(ctx, in, fn))
	}

	return waitForPipeline(errcList...)
}

func produce(ctx context.Context, items []string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				errc <- fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
				return
			}
		}
	}()
	return out, errc
}

func worker(ctx context.Context, in <-chan string, fn Func) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for item := range in {
			if err := fn(ctx, item); err != nil {
				errc <- fmt.Errorf("%s: %w", item, err)
				return
			}
		}
	}()
	return errc
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
