package server

import (
	"io"

	"github.com/gin-gonic/gin"
)

// handleEvents streams change events to the client as Server-Sent Events.
// Each event carries the full updated record; clients treat the stream as a
// refetch hint and reconcile against the REST endpoints after reconnecting.
func (s *Server) handleEvents(c *gin.Context) {
	ch, unsubscribe := s.events.Subscribe(32)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Flush the headers now so clients blocked on the response see the
	// stream open before the first event arrives.
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Topic, ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
