package handler

import (
	"context"

	"github.com/gin-gonic/gin"
)

// ServeWs godoc
// @Summary      Live event stream
// @Description  Upgrades to a websocket carrying events for user.{id} and any group channel the viewer subscribes to with {"action":"subscribe","channel":"group.7"}.
// @Tags         realtime
// @Security     BearerAuth
// @Param        token  query  string  false  "JWT, for clients that cannot set headers"
// @Router       /ws [get]
func (h *Handler) ServeWs(c *gin.Context) {
	userID := currentUser(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	// Serve outlives the request; the peer, not the request context, ends it.
	go h.hub.Serve(context.WithoutCancel(c.Request.Context()), conn, userID, h.svc.Members)
}
