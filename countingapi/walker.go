// ABOUTME: Walker simulates N cooperating threads joined at a safepoint, for tests and benchmarks
// ABOUTME: Grounded on the example corpus's orchestration.ExecuteCalculations errgroup fan-out/join

package countingapi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Walker simulates the host runtime's object-graph walker: N cooperating
// goroutines doing counting work concurrently, joined at a single barrier
// before returning — the Go stand-in for "the walker runs N cooperating
// threads inside a safepoint." This is test/benchmark scaffolding, not
// part of the counting core's public surface; the real walker lives
// outside this module's scope.
type Walker struct {
	Threads int
}

// NewWalker creates a Walker that will fan out into n goroutines.
func NewWalker(n int) *Walker { return &Walker{Threads: n} }

// Run fans out into w.Threads goroutines, each invoking fn with its
// zero-based thread index, and blocks until all have returned. The first
// non-nil error from any thread is returned after every thread has
// finished; the context shared by all threads is cancelled as soon as one
// thread fails, matching errgroup.WithContext's join-barrier semantics.
func (w *Walker) Run(ctx context.Context, fn func(ctx context.Context, threadIdx int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.Threads; i++ {
		idx := i
		g.Go(func() error {
			return fn(gctx, idx)
		})
	}
	return g.Wait()
}
