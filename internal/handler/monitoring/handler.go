package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailworks/shopchat/internal/service/assistant"
	monitoringService "github.com/retailworks/shopchat/internal/service/monitoring"
	"github.com/retailworks/shopchat/pkg/utils"
)

// sessionViewLimit bounds the monitoring sessions listing. The session
// API itself returns fewer; the dashboard wants a longer tail.
const sessionViewLimit = 50

// Handler serves the read-only monitoring views over the backend store.
type Handler struct {
	store *assistant.Store
}

// New creates a monitoring handler.
func New(store *assistant.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers the monitoring routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/monitoring", func(r chi.Router) {
		r.Get("/conversations/{sessionID}", h.handleConversations)
		r.Get("/context/{sessionID}", h.handleContext)
		r.Get("/router/{sessionID}", h.handleRouter)
		r.Get("/sessions/{userID}", h.handleSessions)
		r.Get("/performance", h.handlePerformance)
		r.Get("/agent-conversations/{sessionID}", h.handleAgentConversation)
	})
}

// handleConversations lists every handler transcript for a session.
func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conversations := h.store.Conversations(sessionID)
	if conversations == nil {
		conversations = []monitoringService.Conversation{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// handleContext returns the shared context for a session, null when the
// session has accumulated none.
func (h *Handler) handleContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	utils.RespondJSON(w, http.StatusOK, map[string]any{"context": h.store.SharedContext(sessionID)})
}

// handleRouter returns the routing decisions for a session.
func (h *Handler) handleRouter(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	utils.RespondJSON(w, http.StatusOK, map[string]any{"router_data": h.store.RouterHistory(sessionID)})
}

// handleSessions lists a user's sessions in the monitoring shape.
func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sessions := h.store.Sessions(userID, sessionViewLimit)
	summaries := make([]monitoringService.SessionSummary, len(sessions))
	for i, sess := range sessions {
		summaries[i] = monitoringService.SessionSummary{
			SessionID:    sess.ID,
			UserID:       sess.UserID,
			CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
			LastActivity: sess.LastUsed.Format(time.RFC3339),
			MessageCount: sess.MessageCount,
			Title:        sess.Title,
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

// handlePerformance returns metrics filtered by user, handler, and range.
func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	metrics := h.store.Metrics(q.Get("user_id"), q.Get("handler_type"), q.Get("time_range"), limit)
	if metrics == nil {
		metrics = []monitoringService.Metric{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"metrics": metrics})
}

// handleAgentConversation returns the agent-mode view. A session that
// never ran in agent mode gets an empty view, not an error.
func (h *Handler) handleAgentConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, ok := h.store.AgentConversation(sessionID)
	if !ok {
		conv = monitoringService.AgentConversation{
			SessionID:     sessionID,
			AgentMessages: []monitoringService.AgentMessage{},
			RetrievedAt:   time.Now().UTC().Format(time.RFC3339),
		}
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}
