package http

import (
	"github.com/gin-gonic/gin"

	"farmstand-realtime/internal/middleware"
)

// RegisterRoutes mounts the WebSocket endpoint and the realtime API.
// Browsers cannot set headers on a WebSocket handshake, so /ws also accepts
// the cookie or the token query parameter through the same auth middleware.
func (h *Handler) RegisterRoutes(r gin.IRouter, mw middleware.Middleware) {
	r.GET("/ws", mw.Auth(), h.HandleWebSocket)

	api := r.Group("/api/v1/realtime", mw.Auth())
	{
		api.GET("/channels", h.ListChannels)
		api.POST("/channels/validate", h.ValidateChannel)
		api.POST("/broadcast/:resource", h.Broadcast)
		api.GET("/stats", h.Stats)
	}
}
