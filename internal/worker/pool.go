package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Outcome is the result of one job. Outcomes are returned in input order.
type Outcome[T any, R any] struct {
	Input  T
	Result R
	Err    error
}

// JobFunc processes a single input.
type JobFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Pool runs jobs over a fixed number of goroutines.
type Pool[T any, R any] struct {
	workers int
	job     JobFunc[T, R]
}

// NewPool creates a pool with at least one worker.
func NewPool[T any, R any](workers int, fn JobFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, job: fn}
}

// Run processes every input. Inputs not started before ctx is cancelled
// get ctx.Err() as their outcome error; jobs already running are left to
// observe the cancellation themselves.
func (p *Pool[T, R]) Run(ctx context.Context, inputs []T) []Outcome[T, R] {
	outcomes := make([]Outcome[T, R], len(inputs))
	for i, in := range inputs {
		outcomes[i].Input = in
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := range min(p.workers, len(inputs)) {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes[idx].Err = err
					continue
				}
				res, err := p.job(ctx, inputs[idx])
				outcomes[idx].Result, outcomes[idx].Err = res, err
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Int("index", idx).Msg("Job failed")
				}
			}
		}(w)
	}

	next := 0
feed:
	for ; next < len(inputs); next++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(inputs); i++ {
		outcomes[i].Err = ctx.Err()
	}
	return outcomes
}

// Chunk splits items into slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		chunks = append(chunks, items[i:min(i+size, len(items))])
	}
	return chunks
}
