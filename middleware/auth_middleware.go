package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating JWT tokens
type TokenValidator interface {
	// ValidateToken validates a JWT token and returns claims
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator  TokenValidator
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator:  validator,
		cookieName: defaultCookieName,
		logger:     logger,
	}
}

// defaultCookieName is the cookie carrying the JWT for browser clients.
// The Authorization header takes precedence.
const defaultCookieName = "auth_token"

// WithCookieName changes the cookie the token is read from
func (m *AuthMiddleware) WithCookieName(name string) *AuthMiddleware {
	if name != "" {
		m.cookieName = name
	}
	return m
}

// RequireAuth is a middleware that requires a valid JWT token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r, m.cookieName)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithClaims(ctx, claims)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Sub))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that requires the principal to hold role.
// It must run after ResolvePrincipal.
func (m *AuthMiddleware) RequireRole(role policy.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !principal.HasRole(role) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("required_role", string(role)),
					zap.String("principal", principal.ID))
				_ = utils.WriteForbidden(w, "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the JWT from the Authorization header ("Bearer TOKEN")
// or the named cookie
func extractToken(r *http.Request, cookieName string) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
