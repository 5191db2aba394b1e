package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

const authErrorPath = "/auth/auth-code-error"

// SignIn starts the Google flow.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := d.Flow.Begin(w, r)
		if err != nil {
			d.Logger.Error("failed to start sign-in", logger.Error(err))
			http.Redirect(w, r, authErrorPath, http.StatusFound)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// Callback finishes the Google flow and lands on the dashboard.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := d.Flow.Complete(r.Context(), w, r)
		if err != nil {
			d.Logger.Warn("sign-in failed", logger.Error(err))
			http.Redirect(w, r, authErrorPath, http.StatusFound)
			return
		}

		// only imports need the users table; a failure here must not block sign-in
		if err := d.Rows.RecordLogin(r.Context(), user); err != nil {
			d.Logger.Warn("failed to record login", logger.String("user_id", user.ID), logger.Error(err))
		}

		d.Logger.Info("user signed in", logger.String("user_id", user.ID))
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}
}

// SignOut revokes the session and goes back to the sign-in page.
func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Auth.Revoke(r.Context(), w, r); err != nil {
			d.Logger.Warn("failed to revoke session", logger.Error(err))
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
