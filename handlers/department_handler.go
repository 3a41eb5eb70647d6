package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/middleware"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/utils"
	"go.uber.org/zap"
)

// CreateDepartmentRequest represents a request to create a department
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

// DepartmentResponse represents a department in API responses
type DepartmentResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DepartmentService defines the department operations used by the handlers
type DepartmentService interface {
	List(ctx context.Context) ([]*models.Department, error)
	Create(ctx context.Context, actor *policy.Principal, name string) (*models.Department, error)
}

// DepartmentHandler handles department-related HTTP requests
type DepartmentHandler struct {
	service DepartmentService
	logger  *zap.Logger
}

// NewDepartmentHandler creates a new DepartmentHandler
func NewDepartmentHandler(service DepartmentService, logger *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /v1/departments
func (h *DepartmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]DepartmentResponse, len(departments))
	for i, d := range departments {
		responses[i] = *departmentToResponse(d)
	}
	_ = utils.WriteOK(w, responses)
}

// HandleCreate handles POST /v1/departments
func (h *DepartmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateDepartmentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	d, err := h.service.Create(ctx, middleware.GetPrincipalFromContext(ctx), req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("department created",
		zap.String("request_id", requestID),
		zap.String("name", d.Name))

	_ = utils.WriteCreated(w, departmentToResponse(d))
}

func departmentToResponse(d *models.Department) *DepartmentResponse {
	if d == nil {
		return nil
	}
	return &DepartmentResponse{ID: d.ID, Name: d.Name}
}
