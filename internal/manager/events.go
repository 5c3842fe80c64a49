package manager

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + project and optional fields via key/values.
type Event struct {
	ID      string
	Name    string
	Project string
	Time    time.Time
	Fields  map[string]any
}

func newEvent(name, project string, fields map[string]any) Event {
	if fields == nil {
		fields = map[string]any{}
	}
	return Event{ID: uuid.NewString(), Name: name, Project: project, Time: time.Now(), Fields: fields}
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
