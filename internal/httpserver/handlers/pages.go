package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/web"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Home shows the sign-in page, or sends signed-in users to the dashboard.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Gate.Admit(r.Context(), r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		render(w, d.Logger, http.StatusOK, web.PageLogin, web.Page{})
	}
}

// Dashboard renders the user's bookmarks. The page then opens the live
// socket, which reads its own snapshot.
func Dashboard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := d.Gate.Check(r.Context(), r)
		if errors.Is(err, auth.ErrNoSession) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if err != nil {
			d.Logger.Error("dashboard failed", logger.Error(err))
			ErrorPage(d, w, "/dashboard")
			return
		}

		render(w, d.Logger, http.StatusOK, web.PageDashboard, web.Page{
			User:      a.User,
			Bookmarks: a.Bookmarks,
			Empty:     domain.MsgEmptyList,
		})
	}
}

// AuthError is where failed sign-ins land.
func AuthError(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, d.Logger, http.StatusOK, web.PageAuthError, web.Page{})
	}
}

// ErrorPage renders the generic failure page with a retry link.
func ErrorPage(d deps.Deps, w http.ResponseWriter, retry string) {
	render(w, d.Logger, http.StatusInternalServerError, web.PageError, web.Page{Retry: retry})
}

func render(w http.ResponseWriter, log logger.Logger, status int, page string, data web.Page) {
	if err := web.Render(w, status, page, data); err != nil {
		log.Error("failed to render page", logger.String("page", page), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
