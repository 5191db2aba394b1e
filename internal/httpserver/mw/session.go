package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/auth"
)

// RequireSession admits requests with a live session and stores the
// resulting auth.Access on the request context. Requests without one, or
// whose session cannot be resolved, go to deny with the error.
func RequireSession(g *auth.Gate, deny func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := g.Admit(r.Context(), r)
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAccess(r.Context(), a)))
		})
	}
}

// NoStore keeps per-user responses out of shared caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
