package events

import (
	"sync"
)

const subscriberBuffer = 16

// Hub is an in-process Publisher with per-channel subscriber lists. Slow
// subscribers drop events rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Publish sends the event to every subscriber of the channel. Never blocks:
// subscribers with a full buffer miss the event.
func (h *Hub) Publish(channel string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[channel] {
		select {
		case ch <- event:
		default:
			// subscriber buffer full, drop
		}
	}
}

// Subscribe registers a new subscriber on the channel. The returned cancel
// function removes the subscription and closes the event channel.
func (h *Hub) Subscribe(channel string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[chan Event]struct{})
	}
	h.subs[channel][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[channel], ch)
			if len(h.subs[channel]) == 0 {
				delete(h.subs, channel)
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// SubscriberCount returns the number of subscribers on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
