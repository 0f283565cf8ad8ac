package services

import (
	"slices"

	"dolor/internal/core"
)

// Draft is an in-progress edit of one record.
type Draft struct {
	ID     string
	Fields core.Fields
}

// ListState is the state of one list screen: the loaded records, the ids
// picked for deletion and at most one open edit.
//
// ListState is a value. Every transition returns a new state and leaves the
// receiver untouched, so callers can keep the previous state around when a
// store call fails.
type ListState[T core.Identifiable] struct {
	Items    []T
	Selected []string
	Edit     *Draft
}

// Loaded replaces the items with a freshly fetched list, deduplicated by id.
// Selections and the open edit survive only if their record is still present.
func (s ListState[T]) Loaded(items []T) ListState[T] {
	next := ListState[T]{Items: core.DedupeByID(items)}
	for _, id := range s.Selected {
		if next.Has(id) {
			next.Selected = append(next.Selected, id)
		}
	}
	if s.Edit != nil && next.Has(s.Edit.ID) {
		next.Edit = s.Edit.clone()
	}
	return next
}

// Added appends a newly created record. A record whose id is already listed
// is ignored.
func (s ListState[T]) Added(item T) ListState[T] {
	if s.Has(item.RecordID()) {
		return s.clone()
	}
	next := s.clone()
	next.Items = append(next.Items, item)
	return next
}

// ToggleSelect flips the selection of id. Unknown ids are ignored.
func (s ListState[T]) ToggleSelect(id string) ListState[T] {
	next := s.clone()
	if !s.Has(id) {
		return next
	}
	if i := slices.Index(next.Selected, id); i >= 0 {
		next.Selected = slices.Delete(next.Selected, i, i+1)
		return next
	}
	next.Selected = append(next.Selected, id)
	return next
}

// SelectAll selects every listed record, or clears the selection.
func (s ListState[T]) SelectAll(on bool) ListState[T] {
	next := s.clone()
	next.Selected = nil
	if on {
		for _, it := range s.Items {
			next.Selected = append(next.Selected, it.RecordID())
		}
	}
	return next
}

// StartEdit opens an edit of id with the given field values, replacing any
// edit already open. Unknown ids are ignored.
func (s ListState[T]) StartEdit(id string, fields core.Fields) ListState[T] {
	next := s.clone()
	if !s.Has(id) {
		return next
	}
	next.Edit = &Draft{ID: id, Fields: fields.Clone()}
	return next
}

// CancelEdit drops the open edit.
func (s ListState[T]) CancelEdit() ListState[T] {
	next := s.clone()
	next.Edit = nil
	return next
}

// Saved replaces the record with the same id and closes the edit.
func (s ListState[T]) Saved(item T) ListState[T] {
	next := s.clone()
	for i, it := range next.Items {
		if it.RecordID() == item.RecordID() {
			next.Items[i] = item
		}
	}
	next.Edit = nil
	return next
}

// Deleted drops the given ids from the items and the selection. An edit of a
// deleted record is closed.
func (s ListState[T]) Deleted(ids []string) ListState[T] {
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	next := ListState[T]{}
	for _, it := range s.Items {
		if _, ok := gone[it.RecordID()]; !ok {
			next.Items = append(next.Items, it)
		}
	}
	for _, id := range s.Selected {
		if _, ok := gone[id]; !ok {
			next.Selected = append(next.Selected, id)
		}
	}
	if s.Edit != nil {
		if _, ok := gone[s.Edit.ID]; !ok {
			next.Edit = s.Edit.clone()
		}
	}
	return next
}

// Has reports whether a record with id is listed.
func (s ListState[T]) Has(id string) bool {
	for _, it := range s.Items {
		if it.RecordID() == id {
			return true
		}
	}
	return false
}

// IsSelected reports whether id is selected.
func (s ListState[T]) IsSelected(id string) bool {
	return slices.Contains(s.Selected, id)
}

func (s ListState[T]) clone() ListState[T] {
	return ListState[T]{
		Items:    slices.Clone(s.Items),
		Selected: slices.Clone(s.Selected),
		Edit:     s.Edit.clone(),
	}
}

func (d *Draft) clone() *Draft {
	if d == nil {
		return nil
	}
	return &Draft{ID: d.ID, Fields: d.Fields.Clone()}
}
