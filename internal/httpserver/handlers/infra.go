package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	Mode          string `json:"mode,omitempty"`
	Impact        string `json:"impact,omitempty"`
	Error         string `json:"error,omitempty"`
	SchemaVersion *int   `json:"schema_version,omitempty"`
	Bookmarks     *int   `json:"bookmarks,omitempty"`
	Users         *int   `json:"users,omitempty"`
	Sessions      *int64 `json:"sessions,omitempty"`
}

type infraResponse struct {
	ServiceMode string                     `json:"service_mode"`
	Components  map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"sqlite": checkSQLite(ctx, d),
			"redis":  checkRedis(ctx, d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			ServiceMode: determineServiceMode(components),
			Components:  components,
		})
	}
}

// determineServiceMode: without SQLite nothing works; without Redis nobody
// can sign in and live views stop following changes.
func determineServiceMode(components map[string]componentStatus) string {
	if db, ok := components["sqlite"]; ok && !db.OK {
		return "critical"
	}
	if rdb, ok := components["redis"]; ok && !rdb.OK {
		return "degraded"
	}
	return "operational"
}

func checkSQLite(ctx context.Context, d deps.Deps) componentStatus {
	if d.Rows == nil {
		return componentStatus{OK: false, Mode: "down", Error: "store not initialized"}
	}
	if err := d.Rows.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: "down", Impact: "bookmarks-unavailable", Error: err.Error()}
	}

	st := componentStatus{OK: true, Mode: "optimal"}
	if v, err := d.Rows.SchemaVersion(ctx); err == nil {
		st.SchemaVersion = &v
	}
	if n, err := d.Rows.CountBookmarks(ctx); err == nil {
		st.Bookmarks = &n
	}
	if n, err := d.Rows.CountUsers(ctx); err == nil {
		st.Users = &n
	}
	return st
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "sign-in-and-live-updates-disabled",
			Error:  "client not initialized",
		}
	}

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "sign-in-and-live-updates-disabled",
			Error:  "timeout",
		}
	}

	st := componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "none",
	}
	if d.Sessions != nil {
		if n, err := d.Sessions.CountSessions(ctx); err == nil {
			st.Sessions = &n
		}
	}
	return st
}
