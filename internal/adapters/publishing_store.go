package adapters

import (
	"context"
	"log/slog"

	"dolor/internal/amqp"
	"dolor/internal/core"
	"dolor/internal/records"
)

// EventPublisher is the outbound port for record change events.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// PublishingStore wraps a records.Store and announces every successful
// mutation. The store write is the source of truth: publish failures are
// logged and never turned into errors.
type PublishingStore struct {
	next      records.Store
	publisher EventPublisher
}

func NewPublishingStore(next records.Store, publisher EventPublisher) *PublishingStore {
	return &PublishingStore{next: next, publisher: publisher}
}

// Create implements records.Store
func (s *PublishingStore) Create(ctx context.Context, collection string, fields core.Fields) (core.Record, error) {
	rec, err := s.next.Create(ctx, collection, fields)
	if err != nil {
		return rec, err
	}
	s.publish(ctx, amqp.NewRecordEvent(collection, amqp.OpCreated, rec.ID))
	return rec, nil
}

// ListAll implements records.Store
func (s *PublishingStore) ListAll(ctx context.Context, collection string) ([]core.Record, error) {
	return s.next.ListAll(ctx, collection)
}

// DeleteMany implements records.Store. On a partial failure only the
// confirmed ids are announced.
func (s *PublishingStore) DeleteMany(ctx context.Context, collection string, ids []string) error {
	err := s.next.DeleteMany(ctx, collection, ids)
	confirmed := ids
	if err != nil {
		failed, ok := records.FailedIDs(err)
		if !ok {
			return err
		}
		confirmed = without(ids, failed)
	}
	if len(confirmed) > 0 {
		s.publish(ctx, amqp.NewRecordEvent(collection, amqp.OpDeleted, confirmed...))
	}
	return err
}

// UpdateOne implements records.Store
func (s *PublishingStore) UpdateOne(ctx context.Context, collection, id string, fields core.Fields) error {
	if err := s.next.UpdateOne(ctx, collection, id, fields); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRecordEvent(collection, amqp.OpUpdated, id))
	return nil
}

// Close closes the wrapped store when it holds connections.
func (s *PublishingStore) Close() error {
	if c, ok := s.next.(records.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *PublishingStore) publish(ctx context.Context, ev *amqp.RecordEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping record event",
			"collection", ev.Collection, "op", ev.Op)
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, ev); err != nil {
		// Don't fail the request - the record is already stored
		slog.ErrorContext(ctx, "Failed to publish record event",
			"collection", ev.Collection,
			"op", ev.Op,
			"ids", ev.IDs,
			"error", err)
	}
}

func without(ids, drop []string) []string {
	skip := make(map[string]struct{}, len(drop))
	for _, id := range drop {
		skip[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
