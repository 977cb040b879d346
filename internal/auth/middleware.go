package auth

import (
	"strings"

	"codeberg.org/docsuite/server/internal/errors"
	"github.com/gin-gonic/gin"
)

// validates JWT tokens and adds the identity to context
// websocket clients that cannot set headers may pass the token as ?token=
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			errors.Unauthorized(c, "authorization required")
			c.Abort()
			return
		}

		claims, err := ValidateJWT(token)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// rejects requests whose token does not carry role, must run after AuthMiddleware
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok || claims.Role != role {
			errors.Forbidden(c, "requires role "+role)
			c.Abort()
			return
		}

		c.Next()
	}
}

// extracts user_id from context after AuthMiddleware
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	return id, ok
}

// extracts the validated claims from context after AuthMiddleware
func GetClaims(c *gin.Context) (*Claims, bool) {
	value, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*Claims)
	return claims, ok
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}

		return parts[1], true
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}

	return "", false
}
