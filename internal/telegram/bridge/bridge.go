// Package bridge implements telegram.Client against a local sidecar
// process that owns the account session. The engine stays ignorant of
// the platform protocol; the sidecar exposes a small HTTP surface and
// this adapter maps its responses onto the typed error taxonomy.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"telescout/internal/telegram"
)

// Client talks to the session bridge over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ telegram.Client = (*Client)(nil)

// New creates a bridge client for the given base URL, e.g.
// "http://127.0.0.1:8787".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// wireResult mirrors the sidecar's chat payload.
type wireResult struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MemberCount int    `json:"member_count"`
	Scam        bool   `json:"scam"`
	Broadcast   bool   `json:"broadcast"`
}

func (w wireResult) toSearchResult() telegram.SearchResult {
	return telegram.SearchResult{
		RemoteID:    w.ID,
		Username:    w.Username,
		Title:       w.Title,
		Description: w.Description,
		MemberCount: w.MemberCount,
		Scam:        w.Scam,
		Broadcast:   w.Broadcast,
	}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]telegram.SearchResult, error) {
	u := fmt.Sprintf("%s/search?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)
	var wire []wireResult
	if err := c.get(ctx, u, &wire); err != nil {
		return nil, err
	}
	out := make([]telegram.SearchResult, len(wire))
	for i, w := range wire {
		out[i] = w.toSearchResult()
	}
	return out, nil
}

func (c *Client) Join(ctx context.Context, remoteID int64) error {
	u := fmt.Sprintf("%s/join/%d", c.baseURL, remoteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &telegram.RetryableError{Err: err}
	}
	defer resp.Body.Close()
	return statusError(resp)
}

func (c *Client) CheckMembership(ctx context.Context, remoteID int64) (telegram.MembershipState, error) {
	u := fmt.Sprintf("%s/membership/%d", c.baseURL, remoteID)
	var wire struct {
		State string `json:"state"`
	}
	if err := c.get(ctx, u, &wire); err != nil {
		return telegram.MembershipUnknown, err
	}
	switch wire.State {
	case "joined":
		return telegram.MembershipJoined, nil
	case "left":
		return telegram.MembershipLeft, nil
	case "removed":
		return telegram.MembershipRemoved, nil
	default:
		return telegram.MembershipUnknown, nil
	}
}

func (c *Client) RecentMessages(ctx context.Context, remoteID int64, limit int) ([]string, error) {
	u := fmt.Sprintf("%s/messages/%d?limit=%d", c.baseURL, remoteID, limit)
	var wire struct {
		Messages []string `json:"messages"`
	}
	if err := c.get(ctx, u, &wire); err != nil {
		return nil, err
	}
	return wire.Messages, nil
}

func (c *Client) Resolve(ctx context.Context, username string) (*telegram.SearchResult, error) {
	u := fmt.Sprintf("%s/resolve/%s", c.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &telegram.RetryableError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Unknown handle, not an error.
		return nil, nil
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	var wire wireResult
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &telegram.RetryableError{Err: err}
	}
	result := wire.toSearchResult()
	return &result, nil
}

func (c *Client) get(ctx context.Context, u string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &telegram.RetryableError{Err: err}
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &telegram.RetryableError{Err: err}
	}
	return nil
}

// statusError maps the sidecar's HTTP status onto the error taxonomy.
// 429 carries the platform's mandated wait in Retry-After.
func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		seconds := 60
		if v := resp.Header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				seconds = n
			}
		}
		return &telegram.FloodWaitError{Seconds: seconds}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &telegram.FatalError{Err: fmt.Errorf("bridge rejected request: %s", readBody(resp))}
	case resp.StatusCode >= 500:
		return &telegram.RetryableError{Err: fmt.Errorf("bridge error %d: %s", resp.StatusCode, readBody(resp))}
	default:
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, readBody(resp))
	}
}

func readBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return string(body)
}
