// Package runner fans independent simulations out across goroutines.
// Each request owns its own Grid/ColumnStates/GroupStates allocation, so no
// locking is needed beyond collecting results — mirroring the concurrency
// shape the teacher's datasource aggregator uses for independent fetches.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelquant/vectorsim/internal/sim"
)

// SimRequest is one independent simulation to run. Run receives ctx so a
// long sweep can be cancelled; Partition, when PartitionHi > PartitionLo,
// names the column range this request claims out of a shared Grouping —
// RunMany validates every such partition against the Grouping before
// spawning any goroutine, so a caller slicing a universe across requests
// finds out about a split group immediately instead of mid-run.
type SimRequest struct {
	Label       string
	Grouping    sim.Grouping
	PartitionLo int
	PartitionHi int
	Run         func(ctx context.Context) (*sim.SimResult, error)
}

// Result pairs a request's label with its outcome.
type Result struct {
	Label     string
	SimResult *sim.SimResult
	Err       error
}

// RunMany validates every request's column partition up front (failing fast
// with sim.ErrGroupSplit before any goroutine starts), then runs all
// requests concurrently through an errgroup.Group. A single request's
// error does not cancel its siblings — each Result carries its own Err so a
// parameter sweep still returns every simulation that did succeed.
func RunMany(ctx context.Context, requests []SimRequest) ([]Result, error) {
	for _, req := range requests {
		if req.PartitionHi <= req.PartitionLo {
			continue
		}
		if err := req.Grouping.ValidatePartition(req.PartitionLo, req.PartitionHi); err != nil {
			return nil, fmt.Errorf("runner: request %q: %w", req.Label, err)
		}
	}

	results := make([]Result, len(requests))
	g, gctx := errgroup.WithContext(ctx)

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			res, err := req.Run(gctx)
			results[i] = Result{Label: req.Label, SimResult: res, Err: err}
			return nil // a per-request failure is reported, not fatal to the group
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
