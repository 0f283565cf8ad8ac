package records

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultDeleteConcurrency bounds parallel per-id deletes when no limit is given.
const DefaultDeleteConcurrency = 8

// DeleteEach runs deleteOne for every id with at most limit calls in flight.
//
// Every id is attempted even after a failure. deleteOne returning ErrNotFound
// counts as a confirmed deletion. If any id fails, a *PartialFailureError is
// returned listing the failed ids in input order.
func DeleteEach(ctx context.Context, collection string, ids []string, limit int, deleteOne func(ctx context.Context, id string) error) error {
	if len(ids) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultDeleteConcurrency
	}

	var (
		mu       sync.Mutex
		failed   = make(map[string]struct{})
		firstErr error
	)

	// A failing id must not cancel its siblings, so the group has no context.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			err := deleteOne(ctx, id)
			if err == nil || errors.Is(err, ErrNotFound) {
				return nil
			}
			mu.Lock()
			failed[id] = struct{}{}
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}
	out := make([]string, 0, len(failed))
	for _, id := range ids {
		if _, ok := failed[id]; ok {
			out = append(out, id)
			delete(failed, id)
		}
	}
	return &PartialFailureError{Collection: collection, IDs: out, Err: firstErr}
}
