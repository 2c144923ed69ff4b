package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/realtime"
)

// Get /v1/events
// Streams status_changed and alert_raised events as Server-Sent Events until the client
// disconnects. Administrators receive every order; senders only their own.
func (api *OrderAPI) Events(c *gin.Context) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	sub, err := api.service.Subscribe(c.Request.Context(), actor)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(api.heartbeat)
	defer heartbeat.Stop()
	done := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case event, open := <-sub.Events():
			if !open {
				return false
			}
			c.SSEvent(string(event.Kind), realtime.NewMessage(event))
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}
