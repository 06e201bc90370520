package fetch

import (
	"context"

	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"github.com/banshee-data/elevation.report/internal/request"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one request in a batch. Exactly one of Points and
// Err is set.
type Outcome struct {
	Request *request.FetchRequest
	Points  *pointcloud.PointSet
	Err     *FetchError
}

// RunBatch executes reqs with at most limit in flight (unbounded when limit
// <= 0) and returns once every request has finished. Outcomes are in request
// order; a failure never cancels its siblings.
func RunBatch(ctx context.Context, exec Executor, reqs []*request.FetchRequest, limit int) []Outcome {
	out := make([]Outcome, len(reqs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			ps, err := exec.Execute(ctx, req)
			out[i] = Outcome{Request: req, Points: ps}
			if err != nil {
				out[i] = Outcome{Request: req, Err: asFetchError(req, err, 1)}
			}
			return nil
		})
	}
	g.Wait()
	return out
}
