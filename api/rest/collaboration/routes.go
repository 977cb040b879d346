package collaboration

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/docsuite/server/internal/auth"
)

func RegisterRoutes(router *gin.RouterGroup, sessions SessionReader, archive ThreadLoader) {
	// live sessions
	router.GET("/sessions", auth.AuthMiddleware(), ListSessionsHandler(sessions))

	// document state
	router.GET("/documents/:id/session", auth.AuthMiddleware(), GetSessionHandler(sessions))
	router.GET("/documents/:id/comments", auth.AuthMiddleware(), GetCommentsHandler(sessions, archive))

	// notifications from trusted services
	router.POST("/documents/:id/notifications", auth.AuthMiddleware(), auth.RequireRole(auth.RoleService), NotifyHandler(sessions))
}
