package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether token auth is enforced: Bearer headers for
// the JSON routes, the form token for Slack slash commands.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(SlackAuthMiddleware(authEnabled, token)).Post("/slack/commands", h.SlackCommand)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Post("/commands", h.Command)
		r.Get("/ledger/transactions.csv", h.TransactionsCSV)
		r.Get("/relations/{group}", h.Relations)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
