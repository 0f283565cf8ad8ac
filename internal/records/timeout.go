package records

import (
	"context"
	"errors"
	"time"

	"dolor/internal/core"
)

// DefaultTimeout is the per-call deadline used when none is configured.
const DefaultTimeout = 10 * time.Second

type timeoutStore struct {
	next Store
	d    time.Duration
}

// WithTimeout wraps s so that every call runs under a deadline of d.
// A call that hits the deadline reports ErrStoreUnavailable.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutStore{next: s, d: d}
}

func (t *timeoutStore) Create(ctx context.Context, collection string, fields core.Fields) (core.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return run(ctx, "create", func() (core.Record, error) { return t.next.Create(ctx, collection, fields) })
}

func (t *timeoutStore) ListAll(ctx context.Context, collection string) ([]core.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return run(ctx, "list", func() ([]core.Record, error) { return t.next.ListAll(ctx, collection) })
}

func (t *timeoutStore) DeleteMany(ctx context.Context, collection string, ids []string) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	_, err := run(ctx, "delete", func() (struct{}, error) { return struct{}{}, t.next.DeleteMany(ctx, collection, ids) })
	if err != nil && errors.Is(err, ErrStoreUnavailable) {
		if _, ok := FailedIDs(err); !ok {
			// Nothing was confirmed before the deadline.
			return &PartialFailureError{Collection: collection, IDs: append([]string(nil), ids...), Err: err}
		}
	}
	return err
}

func (t *timeoutStore) UpdateOne(ctx context.Context, collection, id string, fields core.Fields) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	_, err := run(ctx, "update", func() (struct{}, error) { return struct{}{}, t.next.UpdateOne(ctx, collection, id, fields) })
	return err
}

// Close forwards to the wrapped store when it holds connections.
func (t *timeoutStore) Close() error {
	if c, ok := t.next.(Closer); ok {
		return c.Close()
	}
	return nil
}

// run executes fn in its own goroutine so a backend that ignores ctx still
// returns to the caller at the deadline.
func run[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && !errors.Is(r.err, ErrStoreUnavailable) {
			var zero T
			return zero, mapDeadline(op, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, Unavailable(op, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

func mapDeadline(op string, err error) error {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return &PartialFailureError{Collection: pf.Collection, IDs: pf.IDs, Err: Unavailable(op, pf.Err)}
	}
	return Unavailable(op, err)
}
