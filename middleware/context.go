package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/regit-contracts/regit/internal/policy"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"

	// PrincipalKey is the context key for the resolved principal
	PrincipalKey contextKey = "principal"
)

// Claims represents the token claims the API relies on
type Claims struct {
	Sub    string   `json:"sub"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetPrincipalFromContext retrieves the principal. Nil means anonymous.
func GetPrincipalFromContext(ctx context.Context) *policy.Principal {
	if principal, ok := ctx.Value(PrincipalKey).(*policy.Principal); ok {
		return principal
	}
	return nil
}

// WithPrincipal adds the principal to the context
func WithPrincipal(ctx context.Context, principal *policy.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}
