package notification

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
	"github.com/studylane/agency-api/utils/sse"
)

const streamKeepAliveInterval = 30 * time.Second

// Stream handles GET /api/v1/notifications/stream
// Holds an SSE connection open and forwards the agent's live notification
// events as they are published.
func (h *NotificationHandler) Stream(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	if h.hub == nil {
		return response.ServiceUnavailable(c, "Live notifications are not enabled")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	channel := services.AgentChannel(agent.ID)
	eventCh, cancel := h.hub.Subscribe(channel)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The Fiber context is not valid inside this goroutine
		defer cancel()

		if err := sse.Send(w, sse.Event{Event: "connected", Data: fiber.Map{"channel": channel}}); err != nil {
			return
		}

		keepAlive := time.NewTicker(streamKeepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case event, open := <-eventCh:
				if !open {
					return
				}
				if err := sse.Send(w, sse.Event{Event: event.Name, Data: event.Payload}); err != nil {
					// Client disconnected
					return
				}
			case <-keepAlive.C:
				if err := sse.SendKeepAlive(w); err != nil {
					return
				}
			}
		}
	})

	return nil
}
