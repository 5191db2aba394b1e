package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/httpserver/web"
)

func init() { Register(registerPages, middleware.Timeout(10*time.Second)) }

func registerPages(r chi.Router, d deps.Deps) {
	r.Handle("/static/*", web.Static())
	r.With(mw.NoStore).Get("/", handlers.Home(d))
	r.With(mw.NoStore).Get("/dashboard", handlers.Dashboard(d))
}
