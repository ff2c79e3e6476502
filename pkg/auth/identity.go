package auth

import (
	"context"
	"net/http"
	"strings"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unauth"
	}
}

// SecConfig mirrors the security-related configuration used to drive
// identity resolution, CORS and rate limiting. Put here so limiter.go
// and gateway.go can reference the shared type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	// AdminRoles are the X-Role-Name values treated as staff.
	AdminRoles []string
}

// Identity is the authenticated caller injected by the gateway. The
// host platform fronting this service has already authenticated the
// player; we trust its identity headers.
type Identity struct {
	ID   string
	Name string
	Role Role
}

type ctxIdentityKey struct{}

// IdentityFromContext returns the caller identity, if the gateway ran.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(ctxIdentityKey{})
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// IsAdmin reports whether the request carries a staff identity.
func IsAdmin(r *http.Request) bool {
	id, ok := IdentityFromContext(r.Context())
	return ok && id.Role == RoleAdmin
}

func resolveRole(roleName string, adminRoles []string) Role {
	name := strings.TrimSpace(roleName)
	if name == "" {
		return RoleUser
	}
	for _, a := range adminRoles {
		if strings.EqualFold(name, a) {
			return RoleAdmin
		}
	}
	return RoleUser
}
