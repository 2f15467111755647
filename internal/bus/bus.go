// Package bus publishes evaluation events to other services.
package bus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "run.completed").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Event types. Topics are the type with the configured prefix.
const (
	TypeRunCompleted = "run.completed"
	TypeRunFailed    = "run.failed"
)

// Topic joins a prefix and an event type.
func Topic(prefix, eventType string) string {
	return prefix + eventType
}

var eventSeq atomic.Uint64

// NewEvent creates an event with a process-unique ID.
func NewEvent(eventType, source string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        fmt.Sprintf("%s-%d-%d", eventType, now.UnixNano(), eventSeq.Add(1)),
		Type:      eventType,
		Source:    source,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}
