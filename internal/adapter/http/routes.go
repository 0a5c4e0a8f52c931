package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Inbound messages (all channels post to the same surface)
		r.Post("/messages", h.HandleMessage)

		// Agents
		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{id}", h.GetAgent)
		r.Put("/agents/{id}", h.UpdateAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)

		// Conversations (read-only: the engine owns the writes)
		r.Get("/conversations/active", h.FindActiveConversation)
		r.Get("/conversations/stats", h.ConversationStats)
		r.Get("/conversations/{id}", h.GetConversation)

		// Tenants (platform administration)
		r.Get("/tenants", h.ListTenants)
		r.Post("/tenants", h.CreateTenant)
	})
}
