package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docsuite/server/docsuite/comments"
	"codeberg.org/docsuite/server/internal/buffer"
	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/config"
	ws "codeberg.org/docsuite/server/internal/websocket"
)

// holds all dependencies and state for the API server
type Server struct {
	config  *config.Config
	manager *collab.Manager
	hub     *ws.Hub
	router  *gin.Engine

	// optional backends, nil when not configured
	db          *pgxpool.Pool
	commentRepo comments.Repository
	buffer      *buffer.SessionBuffer
	flusher     *buffer.Flusher
	archive     *buffer.Archive
}
