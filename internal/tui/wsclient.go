package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// creates a new webSocket client for one document
func NewWSClient(serverURL, documentID, token string) (*WSClient, error) {
	endpoint, err := websocketEndpoint(serverURL, documentID)
	if err != nil {
		return nil, err
	}

	return &WSClient{
		endpoint: endpoint,
		token:    token,
	}, nil
}

// establishes the WebSocket connection and starts the pumps
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	conn, resp, err := dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect: %s", resp.Status)
		}

		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.connected = true

	// each connection gets its own event stream, closed by its read pump
	events := make(chan wsMessage, eventBufferSize)
	c.events = events

	// set up ping/pong handlers to keep the connection alive
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: pong handler
		return nil
	})

	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: websocket setup

	go c.readPump(conn, events)
	go c.pingPump(conn)

	return nil
}

// sends periodic pings to keep the connection alive
func (c *WSClient) pingPump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()

		if !c.connected || c.conn != conn {
			c.mu.Unlock()
			return
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket ping timing
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

// reads frames until the connection drops; the server may coalesce several events into one frame
func (c *WSClient) readPump(conn *websocket.Conn, events chan<- wsMessage) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.connected = false
			c.conn = nil
		}
		c.mu.Unlock()

		conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
		close(events)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: any frame counts as activity

		msgs, err := decodeFrame(data)
		if err != nil {
			continue
		}

		for _, msg := range msgs {
			events <- msg
		}
	}
}

// sends a command to the server and returns its request id
func (c *WSClient) Send(msgType string, payload any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return "", fmt.Errorf("not connected")
	}

	c.requestID++
	requestID := strconv.FormatUint(c.requestID, 10)

	cmd := wsCommand{
		Type:      msgType,
		RequestID: requestID,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket timing
	if err := c.conn.WriteJSON(cmd); err != nil {
		return "", fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	return requestID, nil
}

// returns whether the client is connected
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// closes the webSocket connection
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.WriteControl( //nolint:errcheck,gosec // G104: best effort close frame
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.conn.Close() //nolint:errcheck,gosec // G104: close
	}

	c.connected = false
}

// returns a tea.Cmd that connects to the webSocket server
func (c *WSClient) ConnectCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		if err := c.Connect(ctx); err != nil {
			return WSConnectErrorMsg{err: err}
		}

		return WSConnectedMsg{}
	}
}

// returns a tea.Cmd that waits for the next inbound event
func (c *WSClient) WaitForEvent() tea.Cmd {
	c.mu.Lock()
	events := c.events
	c.mu.Unlock()

	return func() tea.Msg {
		if events == nil {
			return WSClosedMsg{}
		}

		msg, ok := <-events
		if !ok {
			return WSClosedMsg{}
		}

		return WSEventMsg{event: msg}
	}
}

// splits a frame into events, the server joins queued events with newlines
func decodeFrame(data []byte) ([]wsMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var msgs []wsMessage

	for dec.More() {
		var msg wsMessage
		if err := dec.Decode(&msg); err != nil {
			return msgs, err
		}

		msgs = append(msgs, msg)
	}

	return msgs, nil
}
