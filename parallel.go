package morph

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// each runs fn for every index in [0, n). Work fans out across a bounded
// errgroup once n reaches the engine's threshold; the first error cancels the
// rest and is returned.
func (e *Engine) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	if e.parallelism <= 1 || n < e.threshold {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
