package entigo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll executes independent jobs concurrently and returns their envelopes
// in job order. Jobs share no mutable state, so running them in parallel is
// safe; concurrency <= 0 means no limit. The first error cancels the
// remaining jobs.
func RunAll(ctx context.Context, concurrency int, jobs ...*Job) ([][]byte, error) {
	results := make([][]byte, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, job := range jobs {
		g.Go(func() error {
			envelope, err := job.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = envelope
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
