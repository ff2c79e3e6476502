package auth

import (
	"context"
	"net/http"
	"strings"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/utils"
)

// GateMiddleware resolves the caller identity from the host platform's
// headers, applies CORS and per-identity rate limiting, and injects the
// identity into the request context. X-Identity carries the stable
// player id, X-Identity-Name the display name, X-Role-Name the role the
// host resolved for the player.
func GateMiddleware(cfg SecConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request_received", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

			// cors preflight
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Identity,X-Identity-Name,X-Role-Name")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// probes and scrapes stay open
			if openPath(r.URL.Path) && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			identity := strings.TrimSpace(r.Header.Get("X-Identity"))
			if identity == "" {
				logger.Warn("request_unauthorized", "reason", "missing_identity", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONError(w, http.StatusUnauthorized, "identity required")
				return
			}
			if len(identity) > 128 {
				utils.JSONError(w, http.StatusBadRequest, "identity too long")
				return
			}

			// rate limiting keyed by identity, not remote address, so a
			// shared game-server egress IP does not starve players
			if !limiters.Allow(identity) {
				logger.Warn("rate_limited", "identity", identity, "path", r.URL.Path)
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			id := Identity{
				ID:   identity,
				Name: strings.TrimSpace(r.Header.Get("X-Identity-Name")),
				Role: resolveRole(r.Header.Get("X-Role-Name"), cfg.AdminRoles),
			}
			if id.Name == "" {
				id.Name = id.ID
			}
			ctx := context.WithValue(r.Context(), ctxIdentityKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func openPath(path string) bool {
	if path == "/healthz" || path == "/readyz" || path == "/metrics" {
		return true
	}
	return strings.HasPrefix(path, "/docs")
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
