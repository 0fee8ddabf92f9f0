package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. wsHandler
// serves the push channel and may be nil.
func MountRoutes(r chi.Router, h *Handlers, wsHandler http.HandlerFunc) {
	r.Get("/health", h.Health)
	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Boards
		r.Get("/stats", h.GetStats)
		r.Post("/refresh", h.Refresh)

		// Tasks
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/tasks/{id}/actions", h.TaskActions)
		r.Post("/tasks/{id}/claim", h.ClaimTask)
		r.Post("/tasks/{id}/submit", h.SubmitWork)
		r.Post("/tasks/{id}/approve", h.ApproveWork)
		r.Post("/tasks/{id}/cancel", h.CancelTask)
		r.Post("/tasks/{id}/dispute", h.OpenDispute)

		// Accounts
		r.Get("/accounts/{address}", h.GetAccount)
		r.Get("/accounts/{address}/journal", h.ListJournal)

		// Disputes and jury
		r.Get("/disputes", h.ListDisputes)
		r.Get("/disputes/{id}", h.GetDispute)
		r.Post("/disputes/{id}/vote", h.CastVote)
		r.Get("/jury", h.GetJury)
		r.Post("/jurors", h.RegisterJuror)
	})
}
