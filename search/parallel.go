package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/lexis/internal/resource"
)

// fanOut runs task(i) for i in [0, n). A task runs on its own goroutine
// when rc grants a worker slot, otherwise on the calling goroutine, so
// nested fan-outs sharing one controller cannot starve each other.
// The first error cancels the remaining tasks.
func fanOut(ctx context.Context, rc *resource.Controller, n int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		if rc.TryAcquireWorker() {
			g.Go(func() error {
				defer rc.ReleaseWorker()
				return task(gctx, i)
			})
			continue
		}
		if err := task(gctx, i); err != nil {
			g.Go(func() error { return err })
			break
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
