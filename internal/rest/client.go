// Package rest is the HTTP fallback surface for notification mutations
// and snapshot fetches, used whenever the notifications channel is not
// connected.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lqviet/boardhub/internal/model"
)

// ErrGone marks a delete/clear that the server already considers done
// (404) or forbidden in a way that means the resource is not ours anymore
// (403). Callers treat it as idempotent success and still apply the change
// locally.
var ErrGone = errors.New("already gone on server")

// envelope is the server's uniform response wrapper. Only data is read.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is a thin HTTP client for the notification REST surface. Tokens
// are resolved per request so a refreshed session takes effect without
// rebuilding the client.
type Client struct {
	baseURL    string
	token      func() string
	httpClient *http.Client
}

// NewClient creates a notification REST client. The token function is
// called on every request; returning an empty string sends no auth header.
func NewClient(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// snapshot is the GET /notifications payload.
type snapshot struct {
	Notifications []model.Notification `json:"notifications"`
	Stats         model.Stats          `json:"stats"`
}

// Notifications fetches the full notification snapshot.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, model.Stats, error) {
	var snap snapshot
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &snap); err != nil {
		return nil, model.Stats{}, err
	}
	return snap.Notifications, snap.Stats, nil
}

// Stats fetches the aggregate counts alone.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	if err := c.do(ctx, http.MethodGet, "/notifications/stats", nil, &stats); err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}

// MarkRead flags a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+id+"/read", nil, nil)
}

// MarkAllRead flags every notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil)
}

// BulkRead flags a set of notifications as read.
func (c *Client) BulkRead(ctx context.Context, ids []string) error {
	body := map[string][]string{"notificationIds": ids}
	return c.do(ctx, http.MethodPatch, "/notifications/bulk-read", body, nil)
}

// Delete removes a single notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+id, nil, nil)
}

// ClearAll removes every notification.
func (c *Client) ClearAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/notifications/clear-all", nil, nil)
}

// ClearRead removes every read notification.
func (c *Client) ClearRead(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/notifications/clear-read", nil, nil)
}

// do builds the request, handles auth and the response envelope, and
// decodes data into result when non-nil.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response for %s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s (status %d): %w", method, path, resp.StatusCode, ErrGone)
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			if resp.StatusCode >= 300 {
				return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
			}
			return fmt.Errorf("decoding response for %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s (status %d)", method, path, msg, resp.StatusCode)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decoding data for %s %s: %w", method, path, err)
		}
	}

	return nil
}
