package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

const maxBodyBytes = 8 << 10

type bookmarkRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type listResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

// ListBookmarks returns the caller's bookmarks, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := auth.AccessFrom(r.Context())
		list, err := a.Client.List(r.Context())
		if err != nil {
			fail(d, w, "list", err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Bookmarks: list})
	}
}

// CreateBookmark validates and inserts one bookmark.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := auth.AccessFrom(r.Context())

		var req bookmarkRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		url := strings.TrimSpace(req.URL)
		if err := domain.ValidateURL(url); err != nil {
			writeError(w, err)
			return
		}

		b, err := a.Client.Create(r.Context(), url, domain.DeriveTitle(url, req.Title))
		if err != nil {
			fail(d, w, "create", err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

// UpdateBookmark renames a bookmark. An empty title resets it to the host.
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := auth.AccessFrom(r.Context())

		var req bookmarkRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		b, err := a.Client.Update(r.Context(), chi.URLParam(r, "id"), req.Title)
		if err != nil {
			fail(d, w, "update", err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// DeleteBookmark removes a bookmark. Unknown ids succeed too.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := auth.AccessFrom(r.Context())
		if err := a.Client.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			fail(d, w, "delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidation("invalid request body", err)
	}
	return nil
}

func fail(d deps.Deps, w http.ResponseWriter, op string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		d.Logger.Error("bookmark request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, err)
}
