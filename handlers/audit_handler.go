package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/utils"
	"go.uber.org/zap"
)

// AuditLogService defines the audit queries used by the handlers
type AuditLogService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// AuditHandler serves the audit trail to administrators
type AuditHandler struct {
	service AuditLogService
	logger  *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: service, logger: logger}
}

// HandleList handles GET /v1/audit/logs
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	logs, err := h.service.ListRecent(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, logs)
}

// HandleGet handles GET /v1/audit/logs/{id}
func (h *AuditHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "audit log id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	log, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, log)
}
