package xzra

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/discochess/xzra/internal/partition"
	"github.com/discochess/xzra/internal/partition/blockaligned"
	"github.com/discochess/xzra/internal/partition/uniform"
)

// OpenFunc opens a fresh Reader on the same file. LoadParallel calls it
// once per worker.
type OpenFunc func() (*Reader, error)

// ParallelOption configures LoadParallel.
type ParallelOption interface {
	applyParallel(*parallelOptions)
}

type parallelOptions struct {
	strategy partition.Strategy
}

type parallelOptionFunc func(*parallelOptions)

// Compile-time check that parallelOptionFunc implements ParallelOption.
var _ ParallelOption = parallelOptionFunc(nil)

func (f parallelOptionFunc) applyParallel(o *parallelOptions) { f(o) }

// WithPartition sets how the range is split between workers.
// If not set, block-aligned partitioning is used.
func WithPartition(s partition.Strategy) ParallelOption {
	return parallelOptionFunc(func(o *parallelOptions) {
		o.strategy = s
	})
}

// PartitionStrategy returns the partition strategy with the given name:
// "uniform" or "blockaligned".
func PartitionStrategy(name string) (partition.Strategy, error) {
	switch name {
	case "uniform":
		return uniform.New(), nil
	case "blockaligned", "":
		return blockaligned.New(), nil
	}
	return nil, fmt.Errorf("unknown partition strategy %q", name)
}

// LoadParallel fills out with the uncompressed bytes starting at off, using
// up to workers goroutines. Each worker opens its own Reader through open
// and loads a disjoint slice of out. The first error cancels ctx for the
// remaining workers, which check it only before they start loading.
func LoadParallel(ctx context.Context, open OpenFunc, off int64, out []byte, workers int, opts ...ParallelOption) error {
	cfg := parallelOptions{strategy: blockaligned.New()}
	for _, opt := range opts {
		opt.applyParallel(&cfg)
	}
	if len(out) == 0 {
		return nil
	}

	// The first reader supplies the block layout and serves range 0.
	first, err := open()
	if err != nil {
		return fmt.Errorf("opening reader: %w", err)
	}
	defer first.Close()

	end := off + int64(len(out))
	if off < 0 || end > first.UncompressedSize() || end < off {
		return fmt.Errorf("%w: range [%d, %d) outside [0, %d)", ErrLocate, off, end, first.UncompressedSize())
	}

	ranges := cfg.strategy.Ranges(off, end, max(1, workers), first.blockStarts())
	g, ctx := errgroup.WithContext(ctx)
	for i, rg := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := first
			if i > 0 {
				var err error
				if r, err = open(); err != nil {
					return fmt.Errorf("opening reader %d: %w", i, err)
				}
				defer r.Close()
			}
			if err := r.Load(rg.Offset, out[rg.Offset-off:rg.End()-off]); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
