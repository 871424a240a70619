package events

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("agent:1")
	defer cancel()

	hub.Publish("agent:1", Event{Name: "notification.created", Payload: "hello"})

	select {
	case event := <-ch:
		if event.Name != "notification.created" {
			t.Errorf("unexpected event name %q", event.Name)
		}
		if event.Payload != "hello" {
			t.Errorf("unexpected payload %v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHubChannelIsolation(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("agent:1")
	defer cancel()

	hub.Publish("agent:2", Event{Name: "notification.created"})

	select {
	case event := <-ch:
		t.Fatalf("received event %q from another channel", event.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("agent:1")
	if hub.SubscriberCount("agent:1") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount("agent:1"))
	}

	cancel()
	// Cancel is idempotent
	cancel()

	if hub.SubscriberCount("agent:1") != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", hub.SubscriberCount("agent:1"))
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after cancel must not panic
	hub.Publish("agent:1", Event{Name: "notification.created"})
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("agent:1")
	defer cancel()

	// Overfill the buffer; publishes past capacity are dropped, not blocked
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish("agent:1", Event{Name: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Errorf("expected exactly %d buffered events, got %d", subscriberBuffer, received)
			}
			return
		}
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := NewHub()

	first, cancelFirst := hub.Subscribe("agent:1")
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe("agent:1")
	defer cancelSecond()

	hub.Publish("agent:1", Event{Name: "notification.created"})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber missed broadcast event")
		}
	}
}
