package websocket

import (
	"encoding/json"
	"time"

	"codeberg.org/docsuite/server/internal/auth"
	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/errors"
	"codeberg.org/docsuite/server/internal/logger"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// creates a new webSocket client connection
func NewClient(id, documentID string, identity collab.Identity, ipAddress string, conn *websocket.Conn, hub *Hub) *Client {
	queueSize := defaultSendQueueSize
	if hub != nil && hub.opts.SendQueueSize > 0 {
		queueSize = hub.opts.SendQueueSize
	}

	return &Client{
		id:             id,
		DocumentID:     documentID,
		UserID:         identity.UserID,
		DisplayName:    identity.DisplayName,
		AvatarURL:      identity.AvatarURL,
		Role:           identity.Role,
		IPAddress:      ipAddress,
		conn:           conn,
		hub:            hub,
		send:           make(chan []byte, queueSize),
		cursorLimiter:  rate.NewLimiter(rate.Limit(maxCursorUpdatesPerSecond), maxCursorUpdatesPerSecond),
		commandLimiter: rate.NewLimiter(rate.Every(time.Minute/maxCommandsPerMinute), maxCommandsPerMinute),
		contentLimiter: rate.NewLimiter(rate.Limit(maxContentUpdatesPerSecond), maxContentUpdatesPerSecond),
	}
}

// returns the connection id
func (c *Client) ID() string {
	return c.id
}

// returns the identity the client was admitted with
func (c *Client) Identity() collab.Identity {
	return collab.Identity{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		AvatarURL:   c.AvatarURL,
		Role:        c.Role,
	}
}

// reads frames from the webSocket connection and hands them to the session manager
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	idleTimeout := c.hub.idleTimeout()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) //nolint:errcheck,gosec // G104: websocket setup
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) //nolint:errcheck,gosec // G104: pong handler
		c.hub.manager.Touch(c)
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error",
					"client_id", c.id,
					"document_id", c.DocumentID,
					"error", err,
				)
			}

			break
		}

		c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) //nolint:errcheck,gosec // G104: any frame counts as activity

		c.handleMessage(messageBytes)
	}
}

// writes queued events to the webSocket connection and pings the peer
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.pingPeriod())

	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket timing

			if !ok {
				// the client was closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck,gosec // G104: close message
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			w.Write(message) //nolint:errcheck,gosec // G104: websocket write

			// add queued messages to the current webSocket message
			n := len(c.send)

			for range n {
				queued, ok := <-c.send
				if !ok {
					break
				}

				w.Write([]byte{'\n'}) //nolint:errcheck,gosec // G104: websocket write
				w.Write(queued)       //nolint:errcheck,gosec // G104: websocket write
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket ping timing

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// queues an event for the client without blocking
func (c *Client) Send(ev *collab.Event) error {
	messageBytes, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return c.enqueue(messageBytes)
}

func (c *Client) enqueue(messageBytes []byte) error {
	// the read lock keeps Close from closing the channel mid-send
	c.mu.RLock()

	if c.closed {
		c.mu.RUnlock()
		return collab.ErrConnClosed
	}

	select {
	case c.send <- messageBytes:
		c.mu.RUnlock()
		return nil
	default:
	}

	c.mu.RUnlock()

	// channel is full, queue the overflow error as the last frame before closing
	c.sendBufferOverflowError()
	c.Close()

	return collab.ErrSlowConsumer
}

// swaps the oldest queued frame for a buffer overflow error
// the write pump is the only writer on the socket, so the error goes through the queue
func (c *Client) sendBufferOverflowError() {
	errorBytes, err := json.Marshal(&collab.Event{
		Type:       collab.TypeError,
		DocumentID: c.DocumentID,
		UserID:     c.UserID,
		Timestamp:  time.Now(),
		Payload: errors.ErrorResponse{
			Error:   "buffer_overflow",
			Message: "message buffer full, connection will be closed",
			Details: "too many messages queued, please reconnect",
		},
	})
	if err != nil {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	select {
	case <-c.send:
	default:
	}

	select {
	case c.send <- errorBytes:
	default:
	}
}

// sends an error event to the client, echoing the request id
func (c *Client) SendError(requestID, code, message, details string) {
	ev := &collab.Event{
		Type:       collab.TypeError,
		DocumentID: c.DocumentID,
		UserID:     c.UserID,
		RequestID:  requestID,
		Timestamp:  time.Now(),
		Payload: collab.ErrorPayload{
			Error:   code,
			Message: message,
			Details: details,
		},
	}

	if err := c.Send(ev); err != nil {
		logger.Debug("failed to send error to client",
			"client_id", c.id,
			"document_id", c.DocumentID,
			"error_code", code,
			"error", err,
		)
	}
}

// closes the client's outbound queue, the write pump then closes the socket
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// checks if the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closed
}

// checks if the client may take the edit lock and edit content
func (c *Client) CanWrite() bool {
	return c.Role != auth.RoleViewer
}

// reports whether a command of msgType is within the client's rate limits
func (c *Client) allow(msgType string) bool {
	switch msgType {
	case collab.TypeCursorUpdate, collab.TypePing:
		return c.cursorLimiter.Allow()
	case collab.TypeCommentAdd, collab.TypeCommentReply, collab.TypeCommentResolve,
		collab.TypeChatMessage, collab.TypeLockAcquire, collab.TypeLockRelease:
		return c.commandLimiter.Allow()
	case collab.TypeContentUpdate:
		return c.contentLimiter.Allow()
	default:
		return true
	}
}
