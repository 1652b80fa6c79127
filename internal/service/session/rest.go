package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/retailworks/shopchat/internal/model/chat"
)

// restStore talks to the sessions REST API.
type restStore struct {
	baseURL string
	client  *http.Client
}

// NewRESTStore builds a RemoteStore over the sessions API rooted at
// baseURL (e.g. http://localhost:8080/api/v1). A nil client gets a
// 10s-timeout default.
func NewRESTStore(baseURL string, client *http.Client) RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &restStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *restStore) List(ctx context.Context, userID string) ([]chat.Session, error) {
	endpoint := fmt.Sprintf("%s/sessions/%s", s.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list sessions: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Sessions []chat.Session `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return payload.Sessions, nil
}

func (s *restStore) Create(ctx context.Context, sess chat.Session) error {
	body := struct {
		SessionID   string `json:"sessionId"`
		UserID      string `json:"userId"`
		Title       string `json:"title"`
		IsAgentMode bool   `json:"isAgentMode"`
	}{sess.ID, sess.UserID, sess.Title, sess.AgentMode}

	endpoint := fmt.Sprintf("%s/sessions/%s", s.baseURL, url.PathEscape(sess.UserID))
	resp, err := s.doJSON(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create session: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *restStore) Touch(ctx context.Context, userID, id, title string, messageCount int) error {
	body := map[string]any{}
	if title != "" {
		body["title"] = title
	}
	if messageCount >= 0 {
		body["messageCount"] = messageCount
	}

	endpoint := fmt.Sprintf("%s/sessions/%s/%s", s.baseURL, url.PathEscape(userID), url.PathEscape(id))
	resp, err := s.doJSON(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("touch session: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *restStore) Delete(ctx context.Context, userID, id string) error {
	endpoint := fmt.Sprintf("%s/sessions/%s/%s", s.baseURL, url.PathEscape(userID), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete session: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *restStore) doJSON(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.client.Do(req)
}
