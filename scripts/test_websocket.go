//go:build ignore

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"document_id"`
	UserID     string          `json:"user_id,omitempty"`
	Sequence   uint64          `json:"seq,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/test_websocket.go <document_id> <token>")
		fmt.Println("Example: go run scripts/test_websocket.go doc-123 jwt_token_here")
		os.Exit(1)
	}

	documentID := os.Args[1]
	token := os.Args[2]

	// build WebSocket URL
	u := url.URL{
		Scheme: "ws",
		Host:   "localhost:8080",
		Path:   "/api/v1/documents/" + url.PathEscape(documentID) + "/ws",
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	fmt.Printf("Connecting to %s\n", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	fmt.Println("Connected")

	// handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	// read messages, the server may join several events with newlines
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			fmt.Printf("<- %s\n", message)
		}
	}()

	// take the lock, edit, then leave a comment once joined
	time.Sleep(1 * time.Second)

	commands := []map[string]any{
		{"type": "lock_acquire", "request_id": "1"},
		{"type": "content_update", "request_id": "1b", "payload": map[string]any{"content": "edited by the test script"}},
		{"type": "comment_add", "request_id": "2", "payload": map[string]any{
			"content":  "hello from the test script",
			"position": map[string]any{"x": 10, "y": 20, "page": 1},
		}},
		{"type": "chat_message", "request_id": "3", "payload": map[string]any{"message": "hi all"}},
	}

	for _, cmd := range commands {
		data, _ := json.Marshal(cmd)
		fmt.Printf("-> %s\n", data)

		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Println("write:", err)
			return
		}
	}

	// wait for interrupt or done
	select {
	case <-done:
		return
	case <-interrupt:
		fmt.Println("\nInterrupt received, closing connection...")

		// cleanly close the connection
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
