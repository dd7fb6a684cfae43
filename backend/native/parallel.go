package native

import (
	"context"
	"fmt"

	"github.com/gogpu/rhi"
	"golang.org/x/sync/errgroup"
)

// RecordFunc records into buf, the ThreadLocal buffer of worker i.
type RecordFunc func(ctx context.Context, i int, buf *CommandBuffer) error

// RecordParallel records n ThreadLocal buffers, each on its own goroutine,
// and merges them into dst in index order once all succeeded. The first
// error cancels ctx for the other workers and nothing is merged. A worker
// that returns with its buffer still writing fails the whole merge.
func RecordParallel(ctx context.Context, dst *CommandBuffer, n int, record RecordFunc) error {
	if dst.Type() != rhi.Executable {
		return fmt.Errorf("%w: %s buffer", rhi.ErrMergeTarget, dst.Type())
	}
	bufs := make([]*CommandBuffer, n)
	for i := range bufs {
		bufs[i] = NewCommandBuffer(rhi.ThreadLocal, fmt.Sprintf("worker-%d", i))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, buf := range bufs {
		g.Go(func() error {
			if err := record(gctx, i, buf); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return dst.merge(bufs)
}
