package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error to the HTTP status the API answers with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrNoSession), domain.IsKind(err, domain.KindUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.KindValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.KindNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.KindRemote), domain.IsKind(err, domain.KindFeed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := errorResponse{Error: domain.Message(err)}
	var de *domain.Error
	if errors.As(err, &de) {
		resp.Kind = string(de.Kind)
	}
	if errors.Is(err, auth.ErrNoSession) {
		resp = errorResponse{Error: domain.ErrUnauthorized.Message, Kind: string(domain.KindUnauthorized)}
	}
	// storage internals stay in the logs
	if status == http.StatusInternalServerError {
		resp = errorResponse{Error: http.StatusText(status)}
	}
	writeJSON(w, status, resp)
}

// DenyAPI answers requests the session gate turned away.
func DenyAPI(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, err)
}
