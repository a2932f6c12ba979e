package brain

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/abhinav24jha/blank-slate/internal/agents"
)

// batchConcurrency bounds in-flight provider calls per batch.
const batchConcurrency = 8

// DecideBatch runs the decider over a slice of agents concurrently and
// returns decisions index-aligned with the input. Per-agent failures fall
// back to the deterministic rule; the batch itself never fails.
func DecideBatch(ctx context.Context, d Decider, batch []*agents.Agent, dc *Context) []Decision {
	out := make([]Decision, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, a := range batch {
		g.Go(func() error {
			dec, err := d.Decide(gctx, a, dc)
			if err != nil {
				dec, _ = Deterministic{}.Decide(gctx, a, dc)
				dec.Fallback = true
			}
			out[i] = dec
			return nil
		})
	}
	_ = g.Wait()
	return out
}
