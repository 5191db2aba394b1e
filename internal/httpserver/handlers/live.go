package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/live"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Live upgrades to the dashboard socket. The gate runs first, in the same
// call that reads the snapshot the session starts from.
func Live(d deps.Deps) http.HandlerFunc {
	upgrader := live.Upgrader(d.Live)
	log := d.Logger.With(logger.Component("live"))

	return func(w http.ResponseWriter, r *http.Request) {
		a, err := d.Gate.Check(r.Context(), r)
		if errors.Is(err, auth.ErrNoSession) {
			writeError(w, err)
			return
		}
		if err != nil {
			log.Error("failed to open live session", logger.Error(err))
			writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the request
			log.Debug("websocket upgrade failed", logger.Error(err))
			_ = a.Client.Close()
			return
		}

		base := d.BaseContext
		if base == nil {
			base = context.Background()
		}
		sessionLog := log.With(logger.String("user_id", a.User.ID))
		sessionLog.Debug("live session opened")
		live.Serve(base, conn, a.Client, a.Bookmarks, d.Live, sessionLog)
		sessionLog.Debug("live session closed")
	}
}
