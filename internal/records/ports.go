// Package records defines the record store port shared by every backend and
// the helpers built on top of it.
package records

import (
	"context"
	"errors"
	"fmt"

	"dolor/internal/core"
)

var (
	// ErrStoreUnavailable reports that the backing store could not be reached
	// or rejected the operation.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrNotFound reports that no record with the given id exists.
	ErrNotFound = errors.New("record not found")
)

// Store is the uniform CRUD surface over named collections.
type Store interface {
	// Create persists fields under a fresh id and returns the full record.
	Create(ctx context.Context, collection string, fields core.Fields) (core.Record, error)
	// ListAll returns every record of collection in store order.
	// An empty collection yields an empty slice, not an error.
	ListAll(ctx context.Context, collection string) ([]core.Record, error)
	// DeleteMany deletes each id independently. Missing ids count as deleted.
	DeleteMany(ctx context.Context, collection string, ids []string) error
	// UpdateOne replaces only the named fields of the record with id.
	UpdateOne(ctx context.Context, collection, id string, fields core.Fields) error
}

// Closer is implemented by stores that hold connections.
type Closer interface {
	Close() error
}

// PartialFailureError is returned by DeleteMany when some ids could not be
// confirmed deleted. Deletions that succeeded are not rolled back.
type PartialFailureError struct {
	Collection string
	IDs        []string // ids not confirmed deleted
	Err        error    // first failure observed
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("delete %s: %d record(s) not deleted: %v", e.Collection, len(e.IDs), e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// FailedIDs extracts the ids of a partial delete failure.
// ok is false when err is not a PartialFailureError.
func FailedIDs(err error) (ids []string, ok bool) {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return pf.IDs, true
	}
	return nil, false
}

// Unavailable wraps cause so that errors.Is(err, ErrStoreUnavailable) holds
// while keeping the backend message.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, cause)
}
