package sse

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestSendStringData(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := Send(w, Event{Event: "connected", Data: "ok"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	got := buf.String()
	want := "event: connected\ndata: ok\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSendJSONData(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := Send(w, Event{
		Event: "notification.commission",
		Data:  map[string]interface{}{"amount": 750},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "event: notification.commission\n") {
		t.Errorf("missing event line in %q", got)
	}
	if !strings.Contains(got, `data: {"amount":750}`) {
		t.Errorf("missing JSON data line in %q", got)
	}
	if !strings.HasSuffix(got, "\n\n") {
		t.Errorf("event must end with a blank line, got %q", got)
	}
}

func TestSendWithIDAndRetry(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := Send(w, Event{ID: "7", Retry: 3000, Event: "update", Data: "x"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	got := buf.String()
	want := "id: 7\nretry: 3000\nevent: update\ndata: x\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSendKeepAlive(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := SendKeepAlive(w); err != nil {
		t.Fatalf("keepalive failed: %v", err)
	}
	if got := buf.String(); got != ": ping\n\n" {
		t.Errorf("got %q", got)
	}
}
