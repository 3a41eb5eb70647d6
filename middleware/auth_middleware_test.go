package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regit-contracts/regit/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Claims), args.Error(1)
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("valid JWT in Authorization header allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		claims := &Claims{Sub: "u2", Email: "u2@example.com"}
		mockValidator.On("ValidateToken", mock.Anything, "valid-token").Return(claims, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extracted := GetClaimsFromContext(r.Context())
			assert.NotNil(t, extracted)
			assert.Equal(t, "u2", extracted.Sub)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("valid JWT in cookie allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "cookie-token").Return(&Claims{Sub: "u3"}, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "u3", GetClaimsFromContext(r.Context()).Sub)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("custom cookie name", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger).WithCookieName("regit_token")

		mockValidator.On("ValidateToken", mock.Anything, "custom").Return(&Claims{Sub: "u3"}, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: "ignored"})
		req.AddCookie(&http.Cookie{Name: "regit_token", Value: "custom"})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("header takes precedence over cookie", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "header-token").Return(&Claims{Sub: "u2"}, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockValidator.AssertNotCalled(t, "ValidateToken")
	})

	t.Run("invalid authorization header format returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "bad-token").Return(nil, errors.New("invalid token"))

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})
}

func TestRequireRole(t *testing.T) {
	middleware := NewAuthMiddleware(new(MockTokenValidator), zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name      string
		principal *policy.Principal
		want      int
	}{
		{"administrator passes", policy.NewPrincipal("root", policy.RoleAdministrator), http.StatusOK},
		{"manager is forbidden", policy.NewPrincipal("u4", policy.RoleManager), http.StatusForbidden},
		{"plain user is forbidden", policy.NewPrincipal("u2"), http.StatusForbidden},
		{"anonymous is unauthorized", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/departments", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			w := httptest.NewRecorder()

			middleware.RequireRole(policy.RoleAdministrator)(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "access denied")
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Token abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, extractBearerToken(req), header)
	}
}
