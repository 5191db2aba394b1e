package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Readyz is ready when both Redis and SQLite answer.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		if d.RedisClient == nil {
			failed["redis"] = "client not initialized"
		} else if err := d.RedisClient.Ping(ctx).Err(); err != nil {
			failed["redis"] = err.Error()
		}
		if d.Rows == nil {
			failed["sqlite"] = "store not initialized"
		} else if err := d.Rows.Ping(ctx); err != nil {
			failed["sqlite"] = err.Error()
		}

		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Failed: failed})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
