package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second)) // the callback calls Google twice
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:        d.RateBurst,
			RefillPerMin: d.RatePerMin,
			MaxEntries:   10000,
			TrustProxy:   d.TrustProxy,
		}))
		r.Get("/login", handlers.SignIn(d))
		r.Get("/callback", handlers.Callback(d))
		r.Post("/logout", handlers.SignOut(d))
		r.Get("/auth-code-error", handlers.AuthError(d))
	})
}
