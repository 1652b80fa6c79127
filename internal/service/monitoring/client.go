package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Valid time ranges for performance queries.
const (
	RangeHour  = "1h"
	RangeDay   = "24h"
	RangeWeek  = "7d"
	RangeMonth = "30d"
)

const defaultQueryLimit = 100

// Query filters a performance metrics request. Zero values take the
// defaults: all users, all handlers, 24h window, 100 rows.
type Query struct {
	UserID      string
	HandlerType string
	TimeRange   string
	Limit       int
}

func (q Query) normalize() Query {
	switch q.TimeRange {
	case RangeHour, RangeDay, RangeWeek, RangeMonth:
	default:
		q.TimeRange = RangeDay
	}
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	return q
}

// Client queries the read-only monitoring API. Unlike the session and
// recommendation collaborators it surfaces errors: the views render a
// banner instead of falling back to stale data.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a monitoring client rooted at baseURL (e.g.
// http://localhost:8080/api/v1). A nil http client gets a 15s-timeout
// default.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Conversations lists every handler transcript for a session, most
// recently updated first.
func (c *Client) Conversations(ctx context.Context, sessionID string) ([]Conversation, error) {
	var payload struct {
		Conversations []Conversation `json:"conversations"`
	}
	path := "/monitoring/conversations/" + url.PathEscape(sessionID)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Conversations, nil
}

// Context fetches the shared context for a session; nil when the
// session has none yet.
func (c *Client) Context(ctx context.Context, sessionID string) (*SharedContext, error) {
	var payload struct {
		Context *SharedContext `json:"context"`
	}
	path := "/monitoring/context/" + url.PathEscape(sessionID)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Context, nil
}

// RouterHistory fetches the routing decisions for a session, most
// recent first.
func (c *Client) RouterHistory(ctx context.Context, sessionID string) (RouterData, error) {
	var payload struct {
		RouterData RouterData `json:"router_data"`
	}
	path := "/monitoring/router/" + url.PathEscape(sessionID)
	if err := c.get(ctx, path, &payload); err != nil {
		return RouterData{}, err
	}
	return payload.RouterData, nil
}

// Sessions lists a user's sessions, most recent first, bounded to 50.
func (c *Client) Sessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	var payload struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	path := "/monitoring/sessions/" + url.PathEscape(userID)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Sessions, nil
}

// Performance fetches metrics matching the query, most recent first.
func (c *Client) Performance(ctx context.Context, q Query) ([]Metric, error) {
	q = q.normalize()

	params := url.Values{}
	if q.UserID != "" && q.UserID != "all" {
		params.Set("user_id", q.UserID)
	}
	if q.HandlerType != "" && q.HandlerType != "all" {
		params.Set("handler_type", q.HandlerType)
	}
	params.Set("time_range", q.TimeRange)
	params.Set("limit", strconv.Itoa(q.Limit))

	var payload struct {
		Metrics []Metric `json:"metrics"`
	}
	if err := c.get(ctx, "/monitoring/performance?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Metrics, nil
}

// AgentConversation fetches the agent-mode transcript and event-loop
// metrics for a session.
func (c *Client) AgentConversation(ctx context.Context, sessionID string) (AgentConversation, error) {
	var payload AgentConversation
	path := "/monitoring/agent-conversations/" + url.PathEscape(sessionID)
	if err := c.get(ctx, path, &payload); err != nil {
		return AgentConversation{}, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("monitoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("monitoring api: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("monitoring api: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
