package sessions

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/service/assistant"
	"github.com/retailworks/shopchat/pkg/utils"
)

// Handler serves the session registry REST API.
type Handler struct {
	store *assistant.Store
}

// New creates a sessions handler over the shared backend store.
func New(store *assistant.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers session CRUD routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{userID}", h.handleList)
	r.Post("/sessions/{userID}", h.handleCreate)
	r.Put("/sessions/{userID}/{sessionID}", h.handleUpdate)
	r.Delete("/sessions/{userID}/{sessionID}", h.handleDelete)
}

// handleList returns the user's sessions, most recently used first.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sessions := h.store.Sessions(userID, 0)
	if sessions == nil {
		sessions = []chat.Session{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleCreate registers a new session.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID   string `json:"sessionId"`
		UserID      string `json:"userId"`
		Title       string `json:"title"`
		IsAgentMode bool   `json:"isAgentMode"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.SessionID == "" || payload.UserID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and userId are required")
		return
	}

	sess := h.store.CreateSession(chat.Session{
		ID:        payload.SessionID,
		UserID:    payload.UserID,
		Title:     payload.Title,
		AgentMode: payload.IsAgentMode,
	})

	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"sessionId": sess.ID,
		"message":   "Session created successfully",
	})
}

// handleUpdate applies a partial update and bumps the session's last-used time.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Title        *string `json:"title"`
		MessageCount *int    `json:"messageCount"`
		IsAgentMode  *bool   `json:"isAgentMode"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.store.TouchSession(userID, sessionID, payload.Title, payload.MessageCount, payload.IsAgentMode)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session updated successfully"})
}

// handleDelete removes a session. Unknown ids succeed, so retries stay safe.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	h.store.DeleteSession(userID, sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}
