// Package memory implements an in-process records.Store.
//
// Records live in a map per collection and keep insertion order, so ListAll
// is deterministic. It is the default backend for development and the double
// used by service and HTTP tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"dolor/internal/core"
	"dolor/internal/records"
)

type collection struct {
	order []string
	byID  map[string]core.Fields
}

type Store struct {
	mu    sync.RWMutex
	colls map[string]*collection
}

func New() *Store {
	return &Store{colls: make(map[string]*collection)}
}

// Seed inserts records with their existing ids, replacing any record that
// already uses the id. Used to load fixtures and legacy data.
func (s *Store) Seed(name string, recs ...core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(name)
	for _, r := range recs {
		if _, ok := c.byID[r.ID]; !ok {
			c.order = append(c.order, r.ID)
		}
		c.byID[r.ID] = r.Fields.Clone()
	}
}

// Create stores a copy of fields under a fresh UUID.
func (s *Store) Create(ctx context.Context, name string, fields core.Fields) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return core.Record{}, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(name)
	c.order = append(c.order, id)
	c.byID[id] = fields.Clone()
	return core.Record{ID: id, Fields: fields.Clone()}, nil
}

// ListAll returns copies of every record in insertion order.
func (s *Store) ListAll(ctx context.Context, name string) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.colls[name]
	if !ok {
		return []core.Record{}, nil
	}
	out := make([]core.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, core.Record{ID: id, Fields: c.byID[id].Clone()})
	}
	return out, nil
}

// DeleteMany removes each id. Unknown ids are ignored.
func (s *Store) DeleteMany(ctx context.Context, name string, ids []string) error {
	return records.DeleteEach(ctx, name, ids, 1, s.deleteOne(name))
}

func (s *Store) deleteOne(name string) func(context.Context, string) error {
	return func(ctx context.Context, id string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		c, ok := s.colls[name]
		if !ok {
			return records.ErrNotFound
		}
		if _, ok := c.byID[id]; !ok {
			return records.ErrNotFound
		}
		delete(c.byID, id)
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		return nil
	}
}

// UpdateOne merges fields into the stored record.
func (s *Store) UpdateOne(ctx context.Context, name, id string, fields core.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colls[name]
	if !ok {
		return records.ErrNotFound
	}
	cur, ok := c.byID[id]
	if !ok {
		return records.ErrNotFound
	}
	for k, v := range fields {
		cur[k] = v
	}
	return nil
}

// Len returns the number of records in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.colls[name]; ok {
		return len(c.order)
	}
	return 0
}

func (s *Store) coll(name string) *collection {
	c, ok := s.colls[name]
	if !ok {
		c = &collection{byID: make(map[string]core.Fields)}
		s.colls[name] = c
	}
	return c
}
