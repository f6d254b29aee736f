package api

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
	"time"

	"veil/internal/scores"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds an API client for the given bind address. The address may
// be a bare host:port or a full http URL.
func NewClient(address, token string) *Client {
	base := strings.TrimSpace(address)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime state.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Sessions fetches the tracked playback sessions.
func (c *Client) Sessions(ctx context.Context) ([]SessionState, error) {
	var resp SessionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// ListScores fetches summaries of every stored score record.
func (c *Client) ListScores(ctx context.Context) ([]ScoreSummary, error) {
	var resp ScoreListResponse
	if err := c.do(ctx, http.MethodGet, "/api/scores", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// GetScores fetches the full record for one media item, or nil when absent.
func (c *Client) GetScores(ctx context.Context, mediaID string) (*scores.Record, error) {
	var resp ScoreRecordResponse
	err := c.do(ctx, http.MethodGet, "/api/scores/"+url.PathEscape(mediaID), nil, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return resp.Record, nil
}

// PutScores replaces the stored record for its media item.
func (c *Client) PutScores(ctx context.Context, record *scores.Record) (ScoreSummary, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return ScoreSummary{}, fmt.Errorf("encode score record: %w", err)
	}
	var summary ScoreSummary
	if err := c.do(ctx, http.MethodPut, "/api/scores/"+url.PathEscape(record.MediaID), body, &summary); err != nil {
		return ScoreSummary{}, err
	}
	return summary, nil
}

// DeleteScores removes the stored record for a media item.
func (c *Client) DeleteScores(ctx context.Context, mediaID string) error {
	return c.do(ctx, http.MethodDelete, "/api/scores/"+url.PathEscape(mediaID), nil, nil)
}

// Reload drops the score cache and rehydrates it from storage.
func (c *Client) Reload(ctx context.Context) (int, error) {
	var resp ReloadResponse
	if err := c.do(ctx, http.MethodPost, "/api/reload", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Records, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) (NotifyTestResponse, error) {
	var resp NotifyTestResponse
	if err := c.do(ctx, http.MethodPost, "/api/test-notification", nil, &resp); err != nil {
		return NotifyTestResponse{}, err
	}
	return resp, nil
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("daemon returned %d", e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("daemon address is not configured")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &payload)
		message := strings.TrimSpace(payload.Error)
		if message == "" {
			message = strings.TrimSpace(string(data))
		}
		return &Error{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
