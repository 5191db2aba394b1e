package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
)

func init() { Register(registerLive) }

// registerLive mounts the dashboard socket. No request timeout: the
// connection lives as long as the page.
func registerLive(r chi.Router, d deps.Deps) {
	r.Get("/ws", handlers.Live(d))
}
