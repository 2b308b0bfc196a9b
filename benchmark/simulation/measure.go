package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/partition"
)

// LayoutOf returns the block layout of an open reader.
func LayoutOf(r *xzra.Reader) Layout {
	l := Layout{Size: r.UncompressedSize()}
	c := r.Blocks()
	for c.Next() {
		l.Starts = append(l.Starts, c.Block().UncompressedOffset())
	}
	return l
}

// Measure times LoadParallel for every request and appends the wall times
// to result.WallSeconds. Each request is loaded into a fresh buffer.
func Measure(ctx context.Context, open xzra.OpenFunc, reqs []Request, workers int, strategy partition.Strategy, result *AggregateResult) error {
	for i, req := range reqs {
		out := make([]byte, req.Length)
		start := time.Now()
		if err := xzra.LoadParallel(ctx, open, req.Offset, out, workers, xzra.WithPartition(strategy)); err != nil {
			return fmt.Errorf("request %d (%s): %w", i, strategy.Name(), err)
		}
		result.WallSeconds = append(result.WallSeconds, time.Since(start).Seconds())
	}
	return nil
}
