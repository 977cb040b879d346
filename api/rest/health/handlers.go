package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/docsuite/server/internal/logger"
)

const checkTimeout = 2 * time.Second

// returns the server health status
func Handler(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status:  "healthy",
		Service: "docsuite",
		Version: "1.0.0",
	})
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{
		Message: "pong",
	})
}

// runs every check and returns 503 if any fails
func ReadyHandler(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp := ReadyResponse{
			Status: "ready",
			Checks: make(map[string]string, len(checks)),
		}

		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn("readiness check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "unavailable"
				continue
			}

			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ready" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, resp)
	}
}
