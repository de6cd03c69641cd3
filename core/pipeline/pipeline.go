// Package pipeline provides the generic grouped-processing runtime the
// reconciliation job runs on: key grouping and a bounded worker pool with a
// per-group failure policy. All ordering is by key, so output does not
// depend on input arrival order or worker scheduling.
package pipeline

import (
	"cmp"
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// GroupBy partitions items by the keys function. An item appears in one
// group per key it yields, so an item may be a member of several groups.
func GroupBy[K comparable, T any](items []T, keys func(T) []K) map[K][]T {
	out := make(map[K][]T)
	for _, item := range items {
		for _, k := range keys(item) {
			out[k] = append(out[k], item)
		}
	}
	return out
}

// SortedKeys returns the group keys in ascending order.
func SortedKeys[K cmp.Ordered, T any](groups map[K][]T) []K {
	keys := make([]K, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// GroupError records a group that failed to process.
type GroupError[K comparable] struct {
	Key K
	Err error
}

// Options controls ProcessGroups.
type Options struct {
	// Workers bounds concurrent group processing. Zero or negative means
	// one worker.
	Workers int
	// SkipFailedGroups keeps processing when a group fails; the failures
	// are returned instead of aborting the run.
	SkipFailedGroups bool
}

// ProcessGroups runs fn over every group concurrently and returns the
// results in ascending key order. Without SkipFailedGroups the first
// failure cancels the remaining work and is returned; with it, failed
// groups are dropped from the results and reported separately.
func ProcessGroups[K cmp.Ordered, T, R any](
	ctx context.Context,
	groups map[K][]T,
	opts Options,
	fn func(ctx context.Context, key K, items []T) (R, error),
) ([]R, []GroupError[K], error) {
	keys := SortedKeys(groups)
	results := make([]*R, len(keys))
	failures := make([]*GroupError[K], len(keys))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, key, groups[key])
			if err != nil {
				if opts.SkipFailedGroups {
					mu.Lock()
					failures[i] = &GroupError[K]{Key: key, Err: err}
					mu.Unlock()
					return nil
				}
				return errors.Wrapf(err, "group %v", key)
			}
			mu.Lock()
			results[i] = &r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]R, 0, len(keys))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	var failed []GroupError[K]
	for _, f := range failures {
		if f != nil {
			failed = append(failed, *f)
		}
	}
	return out, failed, nil
}
