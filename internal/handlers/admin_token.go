package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/wooyoungkug/photocafe-sub007/internal/observability"
)

// RequireAdminToken guards rate table writes with a static bearer token.
// With no token configured the admin API is disabled outright.
func (h *Handlers) RequireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := h.loggerFromContext(ctx)
		meter := observability.MeterFromContext(ctx)

		if !h.config.AdminEnabled() {
			meter.Count("admin.auth.rejected", 1, sentry.WithAttributes(attribute.String("reason", "disabled")))
			writeJSON(w, logger, http.StatusForbidden, errorResponse{Error: "admin API is disabled"})
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.config.AdminAPIToken)) != 1 {
			meter.Count("admin.auth.rejected", 1, sentry.WithAttributes(attribute.String("reason", "bad_token")))
			logger.Warn("rejected admin request", "has_authorization", r.Header.Get("Authorization") != "")
			w.Header().Set("WWW-Authenticate", `Bearer realm="pricing-admin"`)
			writeJSON(w, logger, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
