package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobAdded     EventType = "job_added"
	EventJobStarted   EventType = "job_started"
	EventJobProgress  EventType = "job_progress"
	EventJobCompleted EventType = "job_completed"
	EventJobRetrying  EventType = "job_retrying"
	EventJobFailed    EventType = "job_failed"
	EventJobRemoved   EventType = "job_removed"
	EventIndexReady   EventType = "index_ready"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus. Publication is
// best-effort: delivery failures never affect the publisher.
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe from an event type
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
