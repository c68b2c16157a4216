package api

import (
	"github.com/gin-gonic/gin" // Gin web framework

	"rps_wallet/internal/notify" // Websocket hub
)

// WebSocketHandler streams the caller's wallet and game events
func WebSocketHandler(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request, c.GetUint("userID")) // Blocks until the client disconnects
	}
}
