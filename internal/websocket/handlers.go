package websocket

import (
	"encoding/json"
	"errors"

	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/logger"
	"codeberg.org/docsuite/server/internal/metrics"
)

// decodes an inbound frame, applies transport checks and forwards it to the session manager
func (c *Client) handleMessage(messageBytes []byte) {
	msg, err := decodeMessage(messageBytes)
	if err != nil {
		c.SendError("", collab.CodeBadRequest, "invalid message format", err.Error())
		return
	}

	if err := c.checkMessage(msg); err != nil {
		return
	}

	cmd := collab.Command{
		Type:      msg.Type,
		RequestID: msg.RequestID,
		Payload:   msg.Payload,
	}

	if err := c.hub.manager.OnMessage(c, cmd); err != nil {
		// command errors were already delivered to the client by the session
		if errors.Is(err, collab.ErrUnknownParticipant) {
			logger.Debug("message from connection without a session",
				"client_id", c.id,
				"document_id", c.DocumentID,
				"message_type", msg.Type,
			)
		}
	}
}

// rejects frames that exceed the client's rate limits or permissions
func (c *Client) checkMessage(msg *Message) error {
	if !c.allow(msg.Type) {
		metrics.RateLimitHits.WithLabelValues("websocket").Inc()

		if msg.Type == collab.TypeCursorUpdate {
			// cursor moves are dropped silently, the next one supersedes it
			return ErrRateLimitExceeded
		}

		c.SendError(msg.RequestID, "too_many_requests", "too many messages, slow down", "")
		return ErrRateLimitExceeded
	}

	switch msg.Type {
	case collab.TypeLockAcquire, collab.TypeContentUpdate:
		if !c.CanWrite() {
			c.SendError(msg.RequestID, "forbidden", "viewers cannot edit this document", "")
			return ErrReadOnly
		}
	}

	return nil
}

// parses a frame and checks its envelope
func decodeMessage(messageBytes []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		return nil, ErrInvalidMessage
	}

	if msg.Type == "" {
		return nil, ErrInvalidMessage
	}

	return &msg, nil
}
