package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
)

const (
	restRequestTimeout = 10 * time.Second
	dialTimeout        = 10 * time.Second
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10

	// inbound events buffered between the read pump and the program
	eventBufferSize = 64
)

// builds the websocket endpoint for a document from the server base URL
func websocketEndpoint(serverURL, documentID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme: %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/documents/" + url.PathEscape(documentID) + "/ws"

	return u.String(), nil
}

// builds the REST base URL from the server base URL
func restEndpoint(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported server url scheme: %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1"

	return u.String(), nil
}

func displayName(p collab.Participant) string {
	return orUserID(p.DisplayName, p.UserID)
}

func orUserID(name, userID string) string {
	if name != "" {
		return name
	}

	return userID
}

// renders the comment thread as markdown for glamour
func threadMarkdown(comments []*collab.Comment, nameOf func(string) string) string {
	if len(comments) == 0 {
		return "_no comments yet_\n"
	}

	var b strings.Builder

	for _, c := range comments {
		status := ""
		if c.Resolved {
			status = " ~~resolved~~"
		}

		fmt.Fprintf(&b, "**#%d** %s%s", c.ID, nameOf(c.AuthorID), status)

		if c.Position != nil {
			fmt.Fprintf(&b, " _(p.%d %.0f,%.0f)_", c.Position.Page, c.Position.X, c.Position.Y)
		}

		fmt.Fprintf(&b, "\n\n> %s\n\n", c.Content)

		for _, r := range c.Replies {
			fmt.Fprintf(&b, "- **#%d** %s: %s\n", r.ID, nameOf(r.AuthorID), r.Content)
		}

		if len(c.Replies) > 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}
