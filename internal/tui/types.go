package tui

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/gorilla/websocket"
)

// represents the current state of the TUI
type AppState int

const (
	StateConnecting AppState = iota
	StateConnected
	StateDisconnected
)

// main TUI application model
type Model struct {
	state      AppState
	documentID string
	width      int
	height     int
	err        error

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool

	glamourRenderer *glamour.TermRenderer

	session *SessionView
	ws      *WSClient
	rest    *RESTClient
}

// sent when an error occurs
type ErrorMsg struct {
	err error
}

// sent once the websocket handshake succeeded
type WSConnectedMsg struct{}

// sent when the websocket dial failed
type WSConnectErrorMsg struct {
	err error
}

// carries one inbound event from the server
type WSEventMsg struct {
	event wsMessage
}

// sent when the read pump has stopped
type WSClosedMsg struct{}

// carries the live session listing
type SessionsMsg struct {
	sessions []collab.SessionSummary
}

// carries a thread fetched over REST
type CommentsMsg struct {
	comments []*collab.Comment
	source   string
}

// inbound websocket frame, payload decoded per type
type wsMessage struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"document_id"`
	UserID     string          `json:"user_id,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	Sequence   uint64          `json:"seq,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// outbound websocket frame
type wsCommand struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// manages the websocket connection to a document session
type WSClient struct {
	endpoint string
	token    string

	conn      *websocket.Conn
	connected bool
	mu        sync.Mutex

	events    chan wsMessage
	requestID uint64
}

// manages HTTP requests to the collaboration REST API
type RESTClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// local mirror of a session built from the snapshot and the events after it
type SessionView struct {
	DocumentID   string
	Participants map[string]collab.Participant
	Comments     []*collab.Comment
	Lock         collab.LockView
	Chat         []collab.ChatMessage
	Feed         []string

	Content        string
	ContentVersion uint64

	lastSeq uint64
}

// a parsed input line, ready to be sent
type inputCommand struct {
	Type    string
	Payload any
	Local   string
}
