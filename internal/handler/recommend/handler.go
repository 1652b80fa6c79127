package recommend

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailworks/shopchat/internal/model/profile"
	"github.com/retailworks/shopchat/internal/service/assistant"
	"github.com/retailworks/shopchat/pkg/utils"
)

// cacheTTL matches the freshness window of the production suggestion cache.
const cacheTTL = time.Hour

// Handler serves next-turn chat suggestions. Results are cached per
// user and session; force_refresh bypasses the cache and rotates the
// generated chips.
type Handler struct {
	store    *assistant.Store
	profiles profile.Store

	mu    sync.Mutex
	cache map[string]cached
	now   func() time.Time
}

type cached struct {
	items  []string
	at     time.Time
	serial int
}

// New creates a recommendations handler. profiles resolves persona data
// for requests that don't carry their own.
func New(store *assistant.Store, profiles profile.Store) *Handler {
	return &Handler{
		store:    store,
		profiles: profiles,
		cache:    make(map[string]cached),
		now:      time.Now,
	}
}

// RegisterRoutes registers the recommendations routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/recommendations", h.handlePost)
	r.Get("/recommendations", h.handleGet)
}

// handlePost serves suggestions for the user data carried in the body.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
		UserData  struct {
			Persona         string `json:"persona"`
			DiscountPersona string `json:"discount_persona"`
		} `json:"user_data"`
		ForceRefresh bool `json:"force_refresh"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	persona, discount := h.resolveTags(payload.UserID, payload.UserData.Persona, payload.UserData.DiscountPersona)
	h.serve(w, payload.UserID, payload.SessionID, persona, discount, payload.ForceRefresh)
}

// handleGet is the query-parameter variant; user data always comes from
// the profile store.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	persona, discount := h.resolveTags(userID, "", "")
	h.serve(w, userID, q.Get("session_id"), persona, discount, q.Get("force_refresh") == "true")
}

// resolveTags prefers request-supplied tags and falls back to the
// profile store for known shoppers.
func (h *Handler) resolveTags(userID, rawPersona, rawDiscount string) (profile.PersonaTag, profile.DiscountTag) {
	if rawPersona == "" && rawDiscount == "" {
		if p, ok := h.profiles.FindByID(userID); ok {
			return p.Persona, p.Discount
		}
	}
	return profile.ParsePersonaTag(rawPersona), profile.ParseDiscountTag(rawDiscount)
}

func (h *Handler) serve(w http.ResponseWriter, userID, sessionID string, persona profile.PersonaTag, discount profile.DiscountTag, force bool) {
	key := userID
	if sessionID != "" {
		key = userID + "#" + sessionID
	}

	h.mu.Lock()
	entry, ok := h.cache[key]
	if ok && !force && h.now().Sub(entry.at) < cacheTTL {
		items := entry.items
		h.mu.Unlock()
		log.Printf("[recommend] serving cached suggestions for %s", key)
		utils.RespondJSON(w, http.StatusOK, map[string][]string{"recommendations": items})
		return
	}
	serial := entry.serial
	if force {
		serial++
	}
	h.mu.Unlock()

	recent := ""
	if sc := h.store.SharedContext(sessionID); sc != nil && len(sc.Products) > 0 {
		recent = sc.Products[len(sc.Products)-1].Name
	}

	items := assistant.Suggest(persona, discount, recent, serial)
	log.Printf("[recommend] generated suggestions for %s (force=%t)", key, force)

	h.mu.Lock()
	h.cache[key] = cached{items: items, at: h.now(), serial: serial}
	h.mu.Unlock()

	utils.RespondJSON(w, http.StatusOK, map[string][]string{"recommendations": items})
}
