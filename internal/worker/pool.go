// Package worker runs batches of independent jobs on a fixed number of
// goroutines.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Job processes item i of a batch. Jobs record their own outcome.
type Job func(ctx context.Context, i int)

type Pool struct {
	workerCount int
	logger      *slog.Logger
}

func NewPool(workerCount int, logger *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{workerCount: workerCount, logger: logger}
}

// Run calls job for every index in [0, n) and returns once all have finished.
// Indexes not yet started when ctx is cancelled are skipped.
func (p *Pool) Run(ctx context.Context, n int, job Job) {
	if n <= 0 {
		return
	}

	workers := p.workerCount
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range jobs {
				p.process(ctx, id, i, job)
			}
		}(w)
	}

feed:
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			p.logger.Warn("batch cancelled", "remaining", n-i, "error", ctx.Err())
			break
		}
		select {
		case <-ctx.Done():
			p.logger.Warn("batch cancelled", "remaining", n-i, "error", ctx.Err())
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

func (p *Pool) process(ctx context.Context, workerID, i int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker job panicked", "worker", workerID, "index", i, "panic", r)
		}
	}()
	job(ctx, i)
}
