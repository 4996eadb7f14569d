// Package worker provides a bounded worker pool used to decouple message
// ingestion from alert processing.
package worker

import (
	"context"
	"sync"
)

// ProcessFunc handles one job. Errors are the handler's responsibility to
// report; the pool does not retry.
type ProcessFunc[T any] func(ctx context.Context, job T)

// Pool fans jobs out to a fixed number of workers over a bounded queue.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
}

// NewPool creates a pool with the given parallelism and queue size.
func NewPool[T any](numWorkers, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

// Start launches the workers. They run until the context is canceled or the
// queue is closed by Stop.
func (p *Pool[T]) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processor(ctx, job)
		}
	}
}

// Submit enqueues a job without blocking. It reports false when the queue is
// full, letting the caller decide whether to drop or log.
func (p *Pool[T]) Submit(job T) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
