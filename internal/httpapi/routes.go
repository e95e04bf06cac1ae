package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RegisterRoutes binds the verification endpoint to the router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Patch("/internal/verify", h.HandleVerify)
}

// NewRouter builds the internal API router with CORS defaults.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Internal-Key"},
	}))
	RegisterRoutes(r, h)
	return r
}
