package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// AllowOnlyCIDRS guards the ops endpoints. An empty list lets everything
// through. trustProxy resolves the client from proxy headers.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, loggerClient logger.Logger) func(http.Handler) http.Handler {
	log := loggerClient.With(logger.Component("cidr"))
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		log.Debug("no CIDR rules, ops endpoints are open")
		return func(next http.Handler) http.Handler { return next }
	}
	log.Debug("CIDR rules loaded", logger.Int("rules", len(allowed)), logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("ops request rejected",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
