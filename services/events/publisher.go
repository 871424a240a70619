// Package events provides the real-time notification side channel. The core
// services depend only on the Publisher interface; the SSE hub is one
// implementation, injected at wiring time instead of living in a process
// global.
package events

// Event is one message published to a channel.
type Event struct {
	// Name is the event type, e.g. "application.status_changed"
	Name string `json:"event"`
	// Payload is the event body, JSON-encoded on the wire
	Payload interface{} `json:"payload"`
}

// Publisher fans out events to connected clients. Delivery is best-effort:
// implementations must never block the caller and never return delivery
// failures as errors on the hot path.
type Publisher interface {
	Publish(channel string, event Event)
}

// NoopPublisher discards all events. Used when the side channel is disabled
// and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, Event) {}
