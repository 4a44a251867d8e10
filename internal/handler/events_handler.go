package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"skillswap/backend/internal/hub"
)

// Events godoc
// @Summary      Live notification stream
// @Description  Server-sent event stream of the caller's notifications.
// @Tags         notifications
// @Produce      text/event-stream
// @Security     BearerAuth
// @Router       /events [get]
func (h *Handler) Events(c *gin.Context) {
	userID := currentUserID(c)

	client := make(hub.Client, 16)
	h.Hub.Subscribe(userID, client)
	defer h.Hub.Unsubscribe(userID, client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("notification", string(message))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
