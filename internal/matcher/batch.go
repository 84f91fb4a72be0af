package matcher

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one request in a batch.
type Result struct {
	Request Request
	Matches []Match
	Err     error
}

// MatchBatch resolves reqs concurrently on up to workers goroutines
// (GOMAXPROCS when workers < 1). Results line up with reqs. A failing
// request only fails its own Result. Once ctx is done no further requests
// are started and the remaining results carry ctx.Err().
func (m *Matcher) MatchBatch(ctx context.Context, reqs []Request, workers int) []Result {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(reqs))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, req := range reqs {
		results[i].Request = req
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Matches, results[i].Err = m.Match(req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
