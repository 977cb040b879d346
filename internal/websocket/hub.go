package websocket

import (
	"context"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/logger"
	"codeberg.org/docsuite/server/internal/metrics"
)

// how long clients get to read the shutdown notice before their sockets close
const shutdownGrace = 500 * time.Millisecond

func NewHub(manager SessionManager, opts HubOptions) *Hub {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}

	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.IdleTimeout / 2
	}

	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaultSendQueueSize
	}

	return &Hub{
		manager:         manager,
		opts:            opts,
		clients:         make(map[string]*Client),
		userConnections: make(map[string]int),
		ipConnections:   make(map[string]int),
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// starts the hub's sweep loop and blocks until Shutdown
func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer close(h.done)

	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			h.sweep(now)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

// expires idle participants and drops empty sessions past their grace period
func (h *Hub) sweep(now time.Time) {
	expired := h.manager.ExpireIdle(now, h.opts.IdleTimeout)
	removed := h.manager.SweepEmpty(now)

	if expired > 0 || removed > 0 {
		logger.Info("session sweep",
			"expired_participants", expired,
			"removed_sessions", removed,
		)
	}
}

// checks if a new connection is allowed based on connection limits
func (h *Hub) CanAcceptConnection(userID, ipAddress string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.canAcceptConnection(userID, ipAddress)
}

func (h *Hub) canAcceptConnection(userID, ipAddress string) error {
	if userID != "" && h.userConnections[userID] >= maxConnectionsPerUser {
		logger.Warn("connection rejected: user connection limit reached",
			"user_id", userID,
			"current_connections", h.userConnections[userID],
			"max_connections", maxConnectionsPerUser,
		)
		return ErrTooManyConnections
	}

	if ipAddress != "" && h.ipConnections[ipAddress] >= maxConnectionsPerIP {
		logger.Warn("connection rejected: IP connection limit reached",
			"ip_address", ipAddress,
			"current_connections", h.ipConnections[ipAddress],
			"max_connections", maxConnectionsPerIP,
		)
		return ErrTooManyConnections
	}

	return nil
}

// admits a client into its document session and returns the snapshot it was sent
func (h *Hub) Register(ctx context.Context, client *Client) (*collab.Snapshot, error) {
	h.mu.Lock()

	if err := h.canAcceptConnection(client.UserID, client.IPAddress); err != nil {
		h.mu.Unlock()
		return nil, err
	}

	h.track(client)
	h.mu.Unlock()

	snapshot, err := h.manager.OnConnect(ctx, client.DocumentID, client.Identity(), client)
	if err != nil {
		h.mu.Lock()
		h.untrack(client)
		h.mu.Unlock()

		return nil, err
	}

	logger.Info("client registered",
		"client_id", client.id,
		"document_id", client.DocumentID,
		"user_id", client.UserID,
		"role", client.Role,
		"display_name", client.DisplayName,
	)

	return snapshot, nil
}

// removes a client from the hub and its session, safe to call more than once
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()

	if h.clients[client.id] != client {
		h.mu.Unlock()
		return
	}

	h.untrack(client)
	h.mu.Unlock()

	client.Close()
	h.manager.OnDisconnect(client)

	logger.Info("client unregistered",
		"client_id", client.id,
		"document_id", client.DocumentID,
		"user_id", client.UserID,
	)
}

// must be called with lock held
func (h *Hub) track(client *Client) {
	h.clients[client.id] = client

	if client.UserID != "" {
		h.userConnections[client.UserID]++
	}

	if client.IPAddress != "" {
		h.ipConnections[client.IPAddress]++
	}

	metrics.WebSocketConnections.Inc()
}

// must be called with lock held
func (h *Hub) untrack(client *Client) {
	if h.clients[client.id] != client {
		return
	}

	delete(h.clients, client.id)

	if client.UserID != "" {
		h.userConnections[client.UserID]--

		if h.userConnections[client.UserID] <= 0 {
			delete(h.userConnections, client.UserID)
		}
	}

	if client.IPAddress != "" {
		h.ipConnections[client.IPAddress]--

		if h.ipConnections[client.IPAddress] <= 0 {
			delete(h.ipConnections, client.IPAddress)
		}
	}

	metrics.WebSocketConnections.Dec()
}

// returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// returns the number of connections held by a user
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.userConnections[userID]
}

// stops the hub, notifying and closing every client
// blocks until the hub loop has exited or ctx is done
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		close(h.shutdown)
	})

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()

	if !running {
		h.closeAllConnections()
		return nil
	}

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.RLock()

	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}

	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	logger.Info("notifying clients of server shutdown", "clients", len(clients))

	now := time.Now()

	// send shutdown notification to all clients first
	for _, client := range clients {
		ev := &collab.Event{
			Type:       collab.TypeServerShutdown,
			DocumentID: client.DocumentID,
			Timestamp:  now,
			Payload: ServerShutdownPayload{
				Reason: "server is shutting down for maintenance",
			},
		}

		if err := client.Send(ev); err != nil {
			logger.Debug("failed to send shutdown notification",
				"client_id", client.id,
				"document_id", client.DocumentID,
				"error", err,
			)
		}
	}

	// give write pumps a moment to flush the notice
	time.Sleep(shutdownGrace)

	for _, client := range clients {
		h.Unregister(client)
	}

	logger.Info("all websocket connections closed")
}

func (h *Hub) idleTimeout() time.Duration {
	return h.opts.IdleTimeout
}

// pings go out well inside the idle window
func (h *Hub) pingPeriod() time.Duration {
	return (h.opts.IdleTimeout * 9) / 10
}
