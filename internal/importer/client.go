package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

// ErrNotFound is returned by Update when the backend has no matching event.
var ErrNotFound = errors.New("importer: event not found")

// Client talks to the planner backend.
//
// No timeout is set on the underlying http.Client; callers bound requests
// through the context when they need to.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a Client for baseURL (e.g. "http://127.0.0.1:8000").
// A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Import posts req to /calendar/import and returns the server's reply.
//
// The body is decoded as JSON whatever the status code; a reply that is not
// JSON, or has no string "message", is an error.
func (c *Client) Import(ctx context.Context, req model.ImportRequest) (model.ImportResponse, error) {
	var out model.ImportResponse

	raw, status, err := c.do(ctx, http.MethodPost, "/calendar/import", req)
	if err != nil {
		return out, err
	}

	msg, err := decodeMessage(raw, status)
	if err != nil {
		return out, err
	}
	out.Message = msg

	appLog.Debug("import acknowledged", "status", status, "title", req.EventTitle)
	return out, nil
}

// Log fetches the raw import log for childID.
func (c *Client) Log(ctx context.Context, childID string) ([]model.LogEntry, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/calendar/"+url.PathEscape(childID)+"/log", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("calendar log: unexpected status %d", status)
	}

	var entries []model.LogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("calendar log: decode response: %w", err)
	}
	return entries, nil
}

// Update renames (and re-times) a previously imported event.
func (c *Client) Update(ctx context.Context, childID string, req model.UpdateRequest) (model.ImportResponse, error) {
	var out model.ImportResponse

	raw, status, err := c.do(ctx, http.MethodPut, "/calendar/"+url.PathEscape(childID)+"/update", req)
	if err != nil {
		return out, err
	}
	if status == http.StatusNotFound {
		return out, ErrNotFound
	}

	msg, err := decodeMessage(raw, status)
	if err != nil {
		return out, err
	}
	out.Message = msg
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func decodeMessage(raw []byte, status int) (string, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("invalid JSON response (status %d): %w", status, err)
	}
	field, ok := body["message"]
	if !ok {
		return "", fmt.Errorf("response has no message (status %d)", status)
	}
	var msg string
	if string(bytes.TrimSpace(field)) == "null" {
		return "", fmt.Errorf("response message is not a string (status %d)", status)
	}
	if err := json.Unmarshal(field, &msg); err != nil {
		return "", fmt.Errorf("response message is not a string (status %d)", status)
	}
	return msg, nil
}
