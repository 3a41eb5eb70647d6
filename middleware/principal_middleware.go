package middleware

import (
	"net"
	"net/http"

	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/services/audit"
	"go.uber.org/zap"
)

// PrincipalMiddleware turns validated claims into a policy principal
type PrincipalMiddleware struct {
	roles  *policy.RoleMapping
	logger *zap.Logger
}

// NewPrincipalMiddleware creates a new PrincipalMiddleware
func NewPrincipalMiddleware(roles *policy.RoleMapping, logger *zap.Logger) *PrincipalMiddleware {
	if roles == nil {
		roles = policy.DefaultRoleMapping()
	}
	return &PrincipalMiddleware{roles: roles, logger: logger}
}

// ResolvePrincipal maps the token's groups to roles and stores the principal.
// Requests without claims continue as anonymous.
func (m *PrincipalMiddleware) ResolvePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims := GetClaimsFromContext(ctx)
		if claims == nil {
			next.ServeHTTP(w, r)
			return
		}

		principal := m.roles.Principal(claims.Sub, claims.Groups)
		if principal != nil {
			m.logger.Debug("principal resolved",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("principal", principal.ID),
				zap.Int("roles", len(principal.Roles())))
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequestInfo copies request ID, client address and user agent into the
// context for audit entries
func RequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithRequestInfo(r.Context(), audit.RequestInfo{
			RequestID: GetRequestIDFromContext(r.Context()),
			IPAddress: clientIP(r.RemoteAddr),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
