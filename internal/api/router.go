package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"domainaudit/internal/middleware"
)

// NewRouter assembles the chi router: panic recovery, request IDs, request
// logging, the CORS gate, and the audit endpoints.
//
// The CORS policy is static configuration. Preflights are answered by the
// middleware with the policy headers and an empty body; non-preflight
// requests from disallowed origins still execute, since the gate only
// controls browser-visible headers.
func NewRouter(h *Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Post("/log", h.HandleLog)
	r.Options("/log", h.HandlePreflight)
	r.Get("/stats", h.HandleStats)
	r.Get("/healthz", h.HandleHealthz)

	return r
}
