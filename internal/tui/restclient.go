package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"codeberg.org/docsuite/server/internal/collab"
	tea "github.com/charmbracelet/bubbletea"
)

// creates a new collaboration REST client
func NewRESTClient(serverURL, token string) (*RESTClient, error) {
	endpoint, err := restEndpoint(serverURL)
	if err != nil {
		return nil, err
	}

	return &RESTClient{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: restRequestTimeout,
		},
	}, nil
}

// lists the live sessions on the server
func (c *RESTClient) ListSessions(ctx context.Context) ([]collab.SessionSummary, error) {
	var result listSessionsResponse
	if err := c.get(ctx, "/sessions", &result); err != nil {
		return nil, err
	}

	return result.Sessions, nil
}

// fetches the comment thread of a document, live or archived
func (c *RESTClient) Comments(ctx context.Context, documentID string) ([]*collab.Comment, string, error) {
	var result commentsResponse
	if err := c.get(ctx, "/documents/"+documentID+"/comments", &result); err != nil {
		return nil, "", err
	}

	return result.Comments, result.Source, nil
}

func (c *RESTClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// handle error responses
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
		}

		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// returns a tea.Cmd that fetches the session listing
func (c *RESTClient) ListSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), restRequestTimeout)
		defer cancel()

		sessions, err := c.ListSessions(ctx)
		if err != nil {
			return ErrorMsg{err: err}
		}

		return SessionsMsg{sessions: sessions}
	}
}

// returns a tea.Cmd that loads the archived thread when no session is reachable
func (c *RESTClient) CommentsCmd(documentID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), restRequestTimeout)
		defer cancel()

		comments, source, err := c.Comments(ctx, documentID)
		if err != nil {
			return ErrorMsg{err: err}
		}

		return CommentsMsg{comments: comments, source: source}
	}
}

// REST API response types

type listSessionsResponse struct {
	Sessions []collab.SessionSummary `json:"sessions"`
	Count    int                     `json:"count"`
}

type commentsResponse struct {
	DocumentID string            `json:"document_id"`
	Source     string            `json:"source"`
	Comments   []*collab.Comment `json:"comments"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
