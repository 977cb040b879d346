package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docsuite/server/api/rest/collaboration"
	"codeberg.org/docsuite/server/api/rest/health"
	"codeberg.org/docsuite/server/api/websocket"
	"codeberg.org/docsuite/server/internal/metrics"
	"codeberg.org/docsuite/server/internal/ratelimit"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(metrics.Middleware())
	router.Use(CORSMiddleware(server.config.Environment, server.config.AllowedOrigins))

	router.GET("/health", health.Handler)
	router.GET("/health/ready", health.ReadyHandler(server.readinessChecks()))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var redisClient *redis.Client
	if server.buffer != nil {
		redisClient = server.buffer.Client()
	}

	limit, err := ratelimit.Middleware(server.config.RateLimit, redisClient)
	if err != nil {
		return err
	}

	v1 := router.Group("/api/v1")
	v1.Use(limit)

	{
		v1.GET("/ping", health.PingHandler)

		var archive collaboration.ThreadLoader
		if server.archive != nil {
			archive = server.archive
		}

		collaboration.RegisterRoutes(v1, server.manager, archive)
		websocket.RegisterRoutes(v1, server.hub, server.config.Environment, server.config.AllowedOrigins)
	}

	return nil
}

// allows the configured origins in production and any origin elsewhere
func CORSMiddleware(environment string, allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           5 * time.Minute,
	}

	if environment == "production" {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	return cors.New(corsConfig)
}

// returns readiness probes for the configured backends
func (s *Server) readinessChecks() map[string]health.Check {
	checks := make(map[string]health.Check)

	if s.db != nil {
		checks["postgres"] = func(ctx context.Context) error {
			return s.db.Ping(ctx)
		}
	}

	if s.buffer != nil {
		checks["redis"] = s.buffer.Ping
	}

	return checks
}
