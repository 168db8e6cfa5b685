package szs

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// EncodeAll compresses disjoint buffers in parallel. The codec is pure
// and reentrant, so each buffer compresses on its own goroutine, bounded
// by the CPU count.
func EncodeAll(ctx context.Context, buffers [][]byte) ([][]byte, error) {
	out := make([][]byte, len(buffers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range buffers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Encode(buffers[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeAll expands disjoint streams in parallel.
func DecodeAll(ctx context.Context, buffers [][]byte) ([][]byte, error) {
	out := make([][]byte, len(buffers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range buffers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dec, err := Decode(buffers[i])
			if err != nil {
				return err
			}
			out[i] = dec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
