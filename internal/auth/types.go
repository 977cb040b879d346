package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// roles carried in tokens
const (
	RoleEditor   = "editor"
	RoleReviewer = "reviewer"
	RoleViewer   = "viewer"

	// backend callers pushing notifications into sessions
	RoleService = "service"
)

// gin context keys set by AuthMiddleware
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// represents JWT claims issued by the identity provider
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
