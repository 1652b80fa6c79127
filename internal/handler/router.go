package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/retailworks/shopchat/internal/handler/monitoring"
	"github.com/retailworks/shopchat/internal/handler/recommend"
	"github.com/retailworks/shopchat/internal/handler/sessions"
	"github.com/retailworks/shopchat/internal/handler/ws"
	middlewarePkg "github.com/retailworks/shopchat/internal/middleware"
	"github.com/retailworks/shopchat/internal/model/profile"
	"github.com/retailworks/shopchat/internal/service/assistant"
	"github.com/retailworks/shopchat/pkg/utils"
)

// NewRouter wires HTTP routes to the assistant services.
func NewRouter(store *assistant.Store, engine *assistant.Engine, profiles profile.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := sessions.New(store)
	recommendHandler := recommend.New(store, profiles)
	monitoringHandler := monitoring.New(store)
	chatHandler := ws.New(engine)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		recommendHandler.RegisterRoutes(api)
		monitoringHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
	})

	return r
}
