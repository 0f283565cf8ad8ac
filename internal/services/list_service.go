package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"dolor/internal/core"
	"dolor/internal/records"
)

// ErrNoEdit is returned by SaveEdit when the state has no open edit.
var ErrNoEdit = errors.New("no edit in progress")

// ListService drives one list screen against a typed record collection.
//
// The state-taking methods return the next state on success. On failure they
// return the input state unchanged together with the error, except for a
// partial delete where the confirmed ids are still removed.
type ListService[T core.Identifiable] struct {
	coll *records.Collection[T]
}

func NewListService[T core.Identifiable](coll *records.Collection[T]) *ListService[T] {
	return &ListService[T]{coll: coll}
}

// Collection returns the collection name served by this list.
func (s *ListService[T]) Collection() string { return s.coll.Name() }

// List fetches every record, deduplicated by id.
func (s *ListService[T]) List(ctx context.Context) ([]T, error) {
	items, err := s.coll.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.coll.Name(), err)
	}
	return core.DedupeByID(items), nil
}

// Create stores a new record from fields.
func (s *ListService[T]) Create(ctx context.Context, fields core.Fields) (T, error) {
	return s.coll.Create(ctx, fields)
}

// Update applies a partial field set to the record with id.
func (s *ListService[T]) Update(ctx context.Context, id string, fields core.Fields) error {
	return s.coll.Update(ctx, id, fields)
}

// Delete removes the given ids.
func (s *ListService[T]) Delete(ctx context.Context, ids []string) error {
	return s.coll.Delete(ctx, ids)
}

// Load refreshes st from the store.
func (s *ListService[T]) Load(ctx context.Context, st ListState[T]) (ListState[T], error) {
	items, err := s.List(ctx)
	if err != nil {
		return st, err
	}
	return st.Loaded(items), nil
}

// Add creates a record and appends it to st.
func (s *ListService[T]) Add(ctx context.Context, st ListState[T], fields core.Fields) (ListState[T], error) {
	item, err := s.coll.Create(ctx, fields)
	if err != nil {
		return st, err
	}
	slog.DebugContext(ctx, "Record added", "collection", s.coll.Name(), "id", item.RecordID())
	return st.Added(item), nil
}

// SaveEdit persists the open edit of st and closes it.
func (s *ListService[T]) SaveEdit(ctx context.Context, st ListState[T]) (ListState[T], error) {
	if st.Edit == nil {
		return st, ErrNoEdit
	}
	var current T
	found := false
	for _, it := range st.Items {
		if it.RecordID() == st.Edit.ID {
			current, found = it, true
			break
		}
	}
	if !found {
		return st, fmt.Errorf("edit %s/%s: %w", s.coll.Name(), st.Edit.ID, records.ErrNotFound)
	}

	if err := s.coll.Update(ctx, st.Edit.ID, st.Edit.Fields); err != nil {
		return st, err
	}
	updated, err := merge(s.coll.Name(), current, st.Edit.Fields)
	if err != nil {
		// The store has the new values; only the local copy could not be rebuilt.
		return st.CancelEdit(), err
	}
	return st.Saved(updated), nil
}

// DeleteSelected deletes every selected record.
func (s *ListService[T]) DeleteSelected(ctx context.Context, st ListState[T]) (ListState[T], error) {
	ids := st.Selected
	if len(ids) == 0 {
		return st, nil
	}
	err := s.coll.Delete(ctx, ids)
	if err == nil {
		return st.Deleted(ids), nil
	}

	failed, ok := records.FailedIDs(err)
	if !ok {
		return st, err
	}
	bad := make(map[string]struct{}, len(failed))
	for _, id := range failed {
		bad[id] = struct{}{}
	}
	confirmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := bad[id]; !ok {
			confirmed = append(confirmed, id)
		}
	}
	slog.WarnContext(ctx, "Partial delete",
		"collection", s.coll.Name(),
		"deleted", len(confirmed),
		"failed", len(failed))
	return st.Deleted(confirmed), err
}

// merge overlays validated fields onto item.
func merge[T core.Identifiable](collection string, item T, fields core.Fields) (T, error) {
	var zero T
	clean, err := core.NormalizeFields(collection, fields, true)
	if err != nil {
		return zero, err
	}
	plain, err := records.PlainFields(clean)
	if err != nil {
		return zero, err
	}
	b, err := json.Marshal(item)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", item.RecordID(), err)
	}
	obj := core.Fields{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return zero, fmt.Errorf("decode %s: %w", item.RecordID(), err)
	}
	delete(obj, "id")
	for k, v := range plain {
		obj[k] = v
	}
	return records.Decode[T](core.Record{ID: item.RecordID(), Fields: obj})
}
