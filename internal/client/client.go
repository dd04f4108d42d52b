// Package client provides an HTTP client for the folio comment API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evcraddock/folio/internal/comment"
)

// ChangesPath is the push channel endpoint, relative to the base URL.
const ChangesPath = "/api/comments/changes"

// Client is an HTTP client for the folio API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client. apiKey is only needed for moderation calls.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error: %s", http.StatusText(e.Code))
}

// FetchError is returned when reading comments fails.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetching comments: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// SubmitError is returned when the server rejects or never receives a write.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return "submitting comment: " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status of the rejection, or 0 when the request
// never got a response.
func (e *SubmitError) StatusCode() int {
	var se *StatusError
	if errors.As(e.Err, &se) {
		return se.Code
	}
	return 0
}

// Reason returns the server's message, or the transport error text.
func (e *SubmitError) Reason() string {
	return e.Err.Error()
}

// createRequest is the body of POST /api/comments.
type createRequest struct {
	Name      string `json:"name"`
	Body      string `json:"comment"`
	SessionID string `json:"user_id_session"`
}

// FetchAll returns every comment, newest first.
func (c *Client) FetchAll(ctx context.Context) ([]comment.Comment, error) {
	var comments []comment.Comment
	if err := c.get(ctx, "/api/comments", &comments); err != nil {
		return nil, &FetchError{Err: err}
	}
	// The server already orders the rows; sorting again keeps the
	// contract independent of it.
	comment.SortNewestFirst(comments)
	return comments, nil
}

// Create inserts one comment. The server assigns its ID and CreatedAt.
func (c *Client) Create(ctx context.Context, name, body, sessionID string) (*comment.Comment, error) {
	req := createRequest{Name: name, Body: body, SessionID: sessionID}
	var created comment.Comment
	if err := c.post(ctx, http.MethodPost, "/api/comments", req, &created); err != nil {
		return nil, &SubmitError{Err: err}
	}
	return &created, nil
}

// Update changes a comment's name and/or body. Requires an API key.
func (c *Client) Update(ctx context.Context, id int64, patch comment.Patch) (*comment.Comment, error) {
	var updated comment.Comment
	if err := c.post(ctx, http.MethodPatch, fmt.Sprintf("/api/comments/%d", id), patch, &updated); err != nil {
		return nil, &SubmitError{Err: err}
	}
	return &updated, nil
}

// Delete removes a comment. Requires an API key.
func (c *Client) Delete(ctx context.Context, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+fmt.Sprintf("/api/comments/%d", id), nil)
	if err != nil {
		return &SubmitError{Err: fmt.Errorf("creating request: %w", err)}
	}
	if err := c.do(req, nil); err != nil {
		return &SubmitError{Err: err}
	}
	return nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

// ChangesURL returns the WebSocket URL of the push channel.
func (c *Client) ChangesURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + ChangesPath
	return u.String(), nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a request with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("closing response body", "err", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		se := &StatusError{Code: resp.StatusCode}
		if json.Unmarshal(respBody, &errResp) == nil {
			se.Message = errResp.Error
		}
		return se
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
