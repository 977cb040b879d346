package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// default lifetime of tokens minted by GenerateJWT
const DefaultTokenTTL = 7 * 24 * time.Hour

// creates a JWT token for the given identity, used by dev tooling and tests
func GenerateJWT(userID, displayName, avatarURL, role string, ttl time.Duration) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET not set")
	}

	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	claims := Claims{
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validates a JWT token and returns the claims
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing user_id")
	}

	// display name falls back to the user id
	if claims.DisplayName == "" {
		claims.DisplayName = claims.UserID
	}

	return claims, nil
}
