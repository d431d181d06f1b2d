package lifecycle

import "autoedit/pkg/types"

// Event represents a lifecycle transition.
// Minimal and stable: name + stage and optional fields via key/values.
type Event struct {
	Name   string
	Stage  types.Stage
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
