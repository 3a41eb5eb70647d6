package handlers

import (
	"net/http"

	"github.com/regit-contracts/regit/middleware"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/utils"
)

// CurrentUserResponse is the response body for GET /api/v1/users/me
type CurrentUserResponse struct {
	*models.User
	IsAdmin    bool `json:"is_admin"`
	CanApprove bool `json:"can_approve"`
}

// HandleCurrentUser returns the authenticated caller with resolved roles
func HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middleware.GetClaimsFromContext(ctx)
	principal := middleware.GetPrincipalFromContext(ctx)
	if claims == nil || principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	user := models.NewUser(principal, claims.Email, claims.Name, claims.Groups)
	_ = utils.WriteOK(w, CurrentUserResponse{
		User:       user,
		IsAdmin:    user.IsAdmin(),
		CanApprove: user.CanApprove(),
	})
}
