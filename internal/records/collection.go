package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"dolor/internal/core"
)

// Collection is a typed view over one named collection of a Store.
// T is the record shape; it must decode from the JSON object formed by the
// record fields plus an "id" key.
type Collection[T core.Identifiable] struct {
	name  string
	store Store
}

// NewCollection binds name to store. It panics on an unknown collection name
// since that is a wiring mistake, not a runtime condition.
func NewCollection[T core.Identifiable](store Store, name string) *Collection[T] {
	if !core.IsCollection(name) {
		panic(fmt.Sprintf("records: unknown collection %q", name))
	}
	return &Collection[T]{name: name, store: store}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Create validates fields and stores a new record.
func (c *Collection[T]) Create(ctx context.Context, fields core.Fields) (T, error) {
	var zero T
	clean, err := core.NormalizeFields(c.name, fields, false)
	if err != nil {
		return zero, err
	}
	plain, err := PlainFields(clean)
	if err != nil {
		return zero, err
	}
	rec, err := c.store.Create(ctx, c.name, plain)
	if err != nil {
		return zero, err
	}
	return Decode[T](rec)
}

// List returns every record in store order. A record that does not decode
// into T is logged and skipped.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	recs, err := c.store.ListAll(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := Decode[T](r)
		if err != nil {
			slog.WarnContext(ctx, "Skipping undecodable record",
				"collection", c.name,
				"id", r.ID,
				"error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Update validates a partial field set and applies it to the record with id.
func (c *Collection[T]) Update(ctx context.Context, id string, fields core.Fields) error {
	clean, err := core.NormalizeFields(c.name, fields, true)
	if err != nil {
		return err
	}
	plain, err := PlainFields(clean)
	if err != nil {
		return err
	}
	return c.store.UpdateOne(ctx, c.name, id, plain)
}

// Delete removes the records with the given ids.
func (c *Collection[T]) Delete(ctx context.Context, ids []string) error {
	return c.store.DeleteMany(ctx, c.name, ids)
}

// PlainFields converts fields to plain JSON values (string, float64, bool,
// nil, []any, map[string]any) so document backends never see Go types such
// as decimal.Decimal. Amounts therefore travel as decimal strings.
func PlainFields(fields core.Fields) (core.Fields, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var out core.Fields
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if out == nil {
		out = core.Fields{}
	}
	return out, nil
}

// Decode converts a generic record into T.
func Decode[T any](r core.Record) (T, error) {
	var v T
	obj := make(map[string]any, len(r.Fields)+1)
	for k, val := range r.Fields {
		obj[k] = val
	}
	obj["id"] = r.ID
	b, err := json.Marshal(obj)
	if err != nil {
		return v, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return v, nil
}
