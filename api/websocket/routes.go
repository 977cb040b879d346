package websocket

import (
	"github.com/gin-gonic/gin"

	ws "codeberg.org/docsuite/server/internal/websocket"
)

func RegisterRoutes(router *gin.RouterGroup, hub *ws.Hub, environment string, allowedOrigins []string) {
	router.GET("/documents/:id/ws", WebSocketHandler(hub, NewUpgrader(environment, allowedOrigins)))
}
