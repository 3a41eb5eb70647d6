package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCurrentUser(t *testing.T) {
	t.Run("returns resolved roles", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		ctx := middleware.WithClaims(req.Context(), &middleware.Claims{
			Sub:    "u4",
			Email:  "u4@example.com",
			Name:   "Dana",
			Groups: []string{"managers"},
		})
		ctx = middleware.WithPrincipal(ctx, policy.NewPrincipal("u4", policy.RoleManager))
		w := httptest.NewRecorder()

		HandleCurrentUser(w, req.WithContext(ctx))

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "u4", response.Data["id"])
		assert.Equal(t, "u4@example.com", response.Data["email"])
		assert.Equal(t, []interface{}{"Managers"}, response.Data["roles"])
		assert.Equal(t, false, response.Data["is_admin"])
		assert.Equal(t, true, response.Data["can_approve"])
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleCurrentUser(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
