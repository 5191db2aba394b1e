package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Reload triggers a session sweep and, when configured, a re-import of the
// Homepage file.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gcTriggered := trigger(d.GCTrigger)
		if gcTriggered {
			d.Logger.Info("manual session sweep triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
		} else {
			d.Logger.Warn("session sweep already pending",
				logger.String("remote_ip", r.RemoteAddr))
		}

		importTriggered := false
		if d.ImportTrigger != nil {
			importTriggered = trigger(d.ImportTrigger)
			if importTriggered {
				d.Logger.Info("manual import triggered via endpoint",
					logger.String("remote_ip", r.RemoteAddr))
			} else {
				d.Logger.Warn("import already pending",
					logger.String("remote_ip", r.RemoteAddr))
			}
		}

		if gcTriggered || importTriggered {
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Reload triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		if _, err := w.Write([]byte("⏳ Reload already in progress, please wait\n")); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

func trigger(ch chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}
