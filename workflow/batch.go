package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem pairs a requirement with its run outcome.
type BatchItem struct {
	Requirement string
	Result      *Result
	Err         error
}

// ExecuteAll runs independent requirements with at most concurrency runs in
// flight. Each run owns its own State; a failing or invalid requirement does
// not stop the others. Items are returned in input order. The returned error
// is non-nil only when ctx ended before every run finished.
func (o *Orchestrator) ExecuteAll(ctx context.Context, requirements []string, concurrency int) ([]BatchItem, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	items := make([]BatchItem, len(requirements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range requirements {
		items[i].Requirement = req
		g.Go(func() error {
			res, err := o.Execute(gctx, req)
			items[i].Result = res
			items[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return items, ctx.Err()
}
