package websocket

import (
	"net/http"
	"slices"

	"codeberg.org/docsuite/server/internal/logger"
	"github.com/google/uuid"
)

// returns a CheckOrigin func for the upgrader
// outside production every origin is accepted
func NewOriginChecker(environment string, allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if environment != "production" {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			logger.Warn("websocket connection with no origin header")
			return false
		}

		// production: validate against allowed origins
		if len(allowedOrigins) == 0 {
			logger.Warn("websocket origin rejected - ALLOWED_ORIGINS not configured",
				"origin", origin,
			)
			return false
		}

		if slices.Contains(allowedOrigins, origin) {
			return true
		}

		logger.Warn("websocket origin rejected - not in allowed origins",
			"origin", origin,
			"allowed_origins", allowedOrigins,
		)

		return false
	}
}

func GenerateClientID() string {
	return uuid.NewString()
}
