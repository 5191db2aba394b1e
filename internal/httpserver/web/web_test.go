package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func TestRenderDashboard(t *testing.T) {
	b := domain.Bookmark{
		ID:        "b1",
		URL:       "https://go.dev",
		Title:     `<script>alert(1)</script>`,
		CreatedAt: time.Date(2026, 3, 7, 10, 0, 0, 0, time.Local),
	}

	rec := httptest.NewRecorder()
	err := Render(rec, http.StatusOK, PageDashboard, Page{
		User:      domain.User{Email: "alice@example.com"},
		Bookmarks: []domain.Bookmark{b},
		Empty:     domain.MsgEmptyList,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := rec.Body.String()
	if strings.Contains(body, "<script>alert") {
		t.Error("title must be escaped")
	}
	for _, want := range []string{"<title>SmartMarks</title>", "alice@example.com", `data-id="b1"`, "Mar 7, 2026"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard misses %q", want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRenderUnknownPageWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Render(rec, http.StatusOK, "missing.html", Page{}); err == nil {
		t.Fatal("expected an error")
	}
	if rec.Body.Len() != 0 {
		t.Error("nothing should be written on failure")
	}
}

func TestStaticServesAssets(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "WebSocket") {
		t.Errorf("GET /static/app.js = %d", rec.Code)
	}
}
