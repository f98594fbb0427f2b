package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Pool runs tasks across a fixed number of workers. It is used for
// ingestion-time chunking, where each document is handled end-to-end by one
// worker with no shared mutable state. Size 1 is the recommended setting
// when the chunking oracle is rate limiting.
type Pool struct {
	size   int
	logger *slog.Logger
}

// NewPool creates a pool of the given width. Sizes below 1 are clamped to 1.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, logger: logger}
}

// Size returns the pool width.
func (p *Pool) Size() int {
	return p.size
}

// Run executes task for each index in [0..n) with at most Size workers in
// flight, and blocks until every task has finished (an unordered completion
// barrier). Errors are collected per index; one failing task never cancels
// or aborts the others.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(p.size)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = task(ctx, i)
			return nil
		})
	}
	// Task errors are reported through errs, never through the group.
	_ = g.Wait()

	return errs
}
