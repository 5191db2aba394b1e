// Package web holds the embedded pages and static assets of the dashboard.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

const (
	PageLogin     = "login.html"
	PageDashboard = "dashboard.html"
	PageError     = "error.html"
	PageAuthError = "auth_error.html"

	appTitle = "SmartMarks"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("Jan 2, 2006")
	},
}

var pages = mustParse(PageLogin, PageDashboard, PageError, PageAuthError)

func mustParse(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return out
}

// Page is the data every template renders from.
type Page struct {
	Title     string
	User      domain.User
	Bookmarks []domain.Bookmark
	Empty     string
	FeedError string
	Error     string
	Retry     string
}

// Render executes page into w with status. Nothing is written when the
// template fails.
func Render(w http.ResponseWriter, status int, page string, data Page) error {
	t, ok := pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if data.Title == "" {
		data.Title = appTitle
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
