package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docsuite/server/docsuite/comments"
	"codeberg.org/docsuite/server/internal/buffer"
	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/config"
	"codeberg.org/docsuite/server/internal/logger"
	ws "codeberg.org/docsuite/server/internal/websocket"
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	server := &Server{
		config: cfg,
	}

	if cfg.RedisURL != "" {
		sessionBuffer, err := buffer.NewSessionBuffer(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis buffer: %w", err)
		}

		server.buffer = sessionBuffer
	}

	opts := []collab.Option{
		collab.WithGracePeriod(cfg.SessionGracePeriod),
	}

	if cfg.ArchiveEnabled() {
		db, err := newDatabasePool(ctx, cfg.DatabaseURL)
		if err != nil {
			server.close()
			return nil, err
		}

		server.db = db
		server.commentRepo = comments.NewRepository(db)

		if err := server.commentRepo.EnsureSchema(ctx); err != nil {
			server.close()
			return nil, err
		}

		// thread records go to redis first and are flushed to postgres in the background
		server.flusher = buffer.NewFlusher(server.buffer, server.commentRepo, cfg.FlushInterval)
		server.archive = buffer.NewArchive(server.buffer, server.flusher, server.commentRepo)

		opts = append(opts, collab.WithArchive(server.archive))

		logger.Info("comment archive enabled", "flush_interval", cfg.FlushInterval.String())
	} else {
		logger.Warn("comment archive disabled, threads live only as long as their session",
			"database_configured", cfg.DatabaseURL != "",
			"redis_configured", cfg.RedisURL != "",
		)
	}

	server.manager = collab.NewManager(collab.NewRegistry(), opts...)

	server.hub = ws.NewHub(server.manager, ws.HubOptions{
		IdleTimeout:   cfg.IdleTimeout,
		SweepInterval: cfg.SweepInterval,
		SendQueueSize: cfg.SendQueueSize,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server.router = gin.Default()

	if err := RegisterRoutes(server.router, server); err != nil {
		server.close()
		return nil, err
	}

	return server, nil
}

func newDatabasePool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// the archive only sees flush traffic, keep the pool small
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to postgres")

	return db, nil
}

// starts background workers
func (s *Server) start() {
	go s.hub.Run()

	// start buffer flusher (Redis → Postgres)
	if s.flusher != nil {
		s.flusher.Start()
	}
}

// stops background workers in dependency order
func (s *Server) shutdown(ctx context.Context) {
	// notify websocket clients and close connections first
	if err := s.hub.Shutdown(ctx); err != nil {
		logger.ErrorErr(err, "websocket hub did not stop in time")
	}

	// drain queued thread records into redis
	if s.archive != nil {
		s.archive.Close()
	}

	// stop flusher (flushes remaining data before stopping)
	if s.flusher != nil {
		s.flusher.Stop()
	}

	s.close()
}

// releases connections to backing services
func (s *Server) close() {
	// close Redis connection
	if s.buffer != nil {
		s.buffer.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	// close database connection
	if s.db != nil {
		s.db.Close()
	}
}
