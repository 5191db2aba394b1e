package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:        d.RateBurst,
			RefillPerMin: d.RatePerMin,
			MaxEntries:   10000,
			TrustProxy:   d.TrustProxy,
			Key:          mw.SessionKey(auth.SessionCookie, d.TrustProxy),
		}))
		r.Use(mw.NoStore)
		r.Use(mw.RequireSession(d.Gate, handlers.DenyAPI))

		r.Get("/", handlers.ListBookmarks(d))
		r.Post("/", handlers.CreateBookmark(d))
		r.Patch("/{id}", handlers.UpdateBookmark(d))
		r.Delete("/{id}", handlers.DeleteBookmark(d))
	})
}
