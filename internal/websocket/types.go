package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// client connection constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// default time allowed between frames from the peer
	defaultIdleTimeout = 60 * time.Second

	// maximum message size allowed from peer
	maxMessageSize = 64 * 1024 // 64 KB

	// default outbound queue length per connection
	defaultSendQueueSize = 256

	// rate limiting constants
	maxCursorUpdatesPerSecond  = 30 // cursor moves and pings
	maxCommandsPerMinute       = 20 // comments, chat and lock requests
	maxContentUpdatesPerSecond = 5  // full content replacements
)

// hub connection limit constants
const (
	maxConnectionsPerUser = 5
	maxConnectionsPerIP   = 10
)

// errors
var (
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrTooManyConnections = errors.New("too many connections")
	ErrReadOnly           = errors.New("read-only access")
)

// is an inbound websocket frame; outbound frames are collab.Event values
type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"document_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	Sequence   uint64          `json:"seq,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// contains information about server shutdown
type ServerShutdownPayload struct {
	Reason string `json:"reason"`
}

// is what the hub needs from the session core
type SessionManager interface {
	OnConnect(ctx context.Context, documentID string, identity collab.Identity, conn collab.Conn) (*collab.Snapshot, error)
	OnMessage(conn collab.Conn, cmd collab.Command) error
	OnDisconnect(conn collab.Conn)
	Touch(conn collab.Conn)
	ExpireIdle(now time.Time, timeout time.Duration) int
	SweepEmpty(now time.Time) int
}

// represents a websocket client connection
type Client struct {
	// unique identifier for this connection
	id string

	// document this client is connected to
	DocumentID string

	// identity from the verified token
	UserID      string
	DisplayName string
	AvatarURL   string
	Role        string

	// IP address of the client (for connection tracking)
	IPAddress string

	// websocket connection
	conn *websocket.Conn

	// hub reference for session dispatch
	hub *Hub

	// buffered channel of outbound messages
	send chan []byte

	// mutex for thread-safe operations
	mu sync.RWMutex

	// flag indicating if client is closed
	closed bool

	// rate limiting: cursor updates and pings
	cursorLimiter *rate.Limiter

	// rate limiting: comment, chat and lock commands
	commandLimiter *rate.Limiter

	// rate limiting: document content edits
	contentLimiter *rate.Limiter
}

// hub tuning
type HubOptions struct {
	// read deadline per connection and idle cutoff for participants
	IdleTimeout time.Duration

	// how often idle participants and empty sessions are swept
	SweepInterval time.Duration

	// outbound queue length per connection
	SendQueueSize int
}

// tracks connected clients, enforces connection limits and runs the sweeper
type Hub struct {
	manager SessionManager
	opts    HubOptions

	// connected clients by client ID
	clients map[string]*Client

	// mutex for thread-safe access to clients and counters
	mu sync.RWMutex

	// connection tracking: user ID -> count of connections
	userConnections map[string]int

	// connection tracking: IP address -> count of connections
	ipConnections map[string]int

	// channel to signal shutdown
	shutdown     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once
	running      bool
}
