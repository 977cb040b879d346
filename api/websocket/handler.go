package websocket

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/docsuite/server/internal/auth"
	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/errors"
	"codeberg.org/docsuite/server/internal/logger"
	ws "codeberg.org/docsuite/server/internal/websocket"
)

// time allowed for the join, including loading the archived comment thread
const joinTimeout = 10 * time.Second

// builds the upgrader with the origin policy for the environment
func NewUpgrader(environment string, allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     ws.NewOriginChecker(environment, allowedOrigins),
	}
}

// handles WebSocket connections for document sessions.
// the identity comes from the verified token, never from the client.
func WebSocketHandler(hub *ws.Hub, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params ConnectParams
		if err := c.ShouldBindQuery(&params); err != nil {
			errors.BadRequest(c, "invalid parameters", err)
			return
		}

		documentID, ok := errors.ValidatePathDocumentID(c, "id")
		if !ok {
			return
		}

		token := params.Token
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		if token == "" {
			errors.Unauthorized(c, "valid authentication required")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			return
		}

		// check connection limits before accepting new connection
		ipAddress := c.ClientIP()
		if err := hub.CanAcceptConnection(claims.UserID, ipAddress); err != nil {
			errors.TooManyRequests(c, "too many connections")
			return
		}

		// upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection",
				"document_id", documentID,
				"ip", ipAddress,
			)

			return
		}

		identity := collab.Identity{
			UserID:      claims.UserID,
			DisplayName: claims.DisplayName,
			AvatarURL:   claims.AvatarURL,
			Role:        claims.Role,
		}

		clientID := ws.GenerateClientID()
		client := ws.NewClient(clientID, documentID, identity, ipAddress, conn, hub)

		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()

		if _, err := hub.Register(ctx, client); err != nil {
			rejectConnection(conn, documentID, claims.UserID, err)
			return
		}

		go client.WritePump()
		go client.ReadPump()

		logger.Info("websocket connection established",
			"client_id", clientID,
			"document_id", documentID,
			"role", claims.Role,
			"user_id", claims.UserID,
			"ip", ipAddress,
		)
	}
}

// writes a final error frame to a socket that failed to join, then closes it
func rejectConnection(conn *websocket.Conn, documentID, userID string, err error) {
	logger.Warn("websocket join rejected",
		"document_id", documentID,
		"user_id", userID,
		"error", err,
	)

	ev := rejectionEvent(documentID, userID, err, time.Now())

	conn.SetWriteDeadline(time.Now().Add(time.Second)) //nolint:errcheck,gosec // G104: best effort
	conn.WriteJSON(ev)                                 //nolint:errcheck,gosec // G104: best effort
	conn.WriteMessage(websocket.CloseMessage,          //nolint:errcheck,gosec // G104: best effort
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, collab.ErrorCode(err)))
	conn.Close() //nolint:errcheck,gosec // G104: cleanup
}

// returns the error frame for a failed join, hiding internal failures
func rejectionEvent(documentID, userID string, err error, now time.Time) *collab.Event {
	ev := collab.NewErrorEvent(documentID, userID, "", err, now)

	switch {
	case stderrors.Is(err, ws.ErrTooManyConnections):
		ev.Payload = collab.ErrorPayload{
			Error:   "too_many_requests",
			Message: "too many connections",
		}
	case collab.ErrorCode(err) == collab.CodeServerError:
		ev.Payload = collab.ErrorPayload{
			Error:   collab.CodeServerError,
			Message: "failed to join document session",
			Details: errors.Sanitize(err),
		}
	}

	return ev
}
