package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/calder-systems/pipsnap/internal/pip"
)

// DefaultConcurrency is the default number of in-flight index lookups.
const DefaultConcurrency = 10

// Result is the outcome of resolving one package. Exactly one Result is
// produced per input package, in input order. On success the package's
// Latest and Description fields are filled in; on failure Err carries the
// cause and the package is left untouched.
type Result struct {
	Package *pip.Package
	Err     error
}

// Resolve fetches latest-version metadata for every package, running at
// most limit lookups concurrently. A slow or failing lookup never blocks
// dispatch of its siblings beyond the limit, and a per-package failure
// never aborts the batch. No retries: retry policy belongs to the caller.
//
// Cancelling ctx stops dispatching new lookups; packages never dispatched
// get the context error as their Result.Err, so the result count always
// equals the input count.
func Resolve(ctx context.Context, client *Client, packages []*pip.Package, limit int64) []Result {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(packages))
	sem := semaphore.NewWeighted(limit)
	var wg sync.WaitGroup

	for i, pkg := range packages {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: mark everything not yet dispatched.
			for j := i; j < len(packages); j++ {
				results[j] = Result{Package: packages[j], Err: err}
			}
			break
		}

		wg.Add(1)
		go func(i int, pkg *pip.Package) {
			defer wg.Done()
			defer sem.Release(1)

			meta, err := client.Lookup(ctx, pkg.Name)
			if err != nil {
				results[i] = Result{Package: pkg, Err: err}
				return
			}

			pkg.Latest = meta.Version
			pkg.Description = meta.Summary
			results[i] = Result{Package: pkg}
		}(i, pkg)
	}

	wg.Wait()
	return results
}

// Failed filters results down to those whose lookup failed.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
