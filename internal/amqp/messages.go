package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record mutation kinds carried by a RecordEvent.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// RecordEvent announces a successful mutation of one or more records.
// It carries ids only; consumers read current data from the store.
type RecordEvent struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	IDs        []string  `json:"ids"`
	Timestamp  time.Time `json:"timestamp"`
}

var errInvalidEvent = errors.New("invalid record event")

// NewRecordEvent creates an event stamped with the current time.
func NewRecordEvent(collection, op string, ids ...string) *RecordEvent {
	return &RecordEvent{
		Collection: collection,
		Op:         op,
		IDs:        append([]string(nil), ids...),
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Validate checks that the event names a collection and a known operation.
func (e *RecordEvent) Validate() error {
	if e.Collection == "" {
		return fmt.Errorf("%w: missing collection", errInvalidEvent)
	}
	switch e.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return fmt.Errorf("%w: unknown op %q", errInvalidEvent, e.Op)
	}
	return nil
}

// RecordEventFromJSON decodes and validates an event.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
