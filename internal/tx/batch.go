package tx

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stakenode/internal/ots"
)

// ValidateBatch validates independent transactions on at most workers
// goroutines. results[i] is the Validate result of txs[i]; the returned error
// is non-nil only when ctx ends first.
func ValidateBatch(ctx context.Context, v ots.Verifier, txs []*Transaction, workers int) ([]error, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]error, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range txs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = t.Validate(v)
			return nil
		})
	}
	return results, g.Wait()
}
