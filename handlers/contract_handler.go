package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/middleware"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/services/contract"
	"github.com/regit-contracts/regit/utils"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ContractRequest is the body of POST /contracts and PUT /contracts/{id}.
// Owner and status are not accepted from clients.
type ContractRequest struct {
	RegNum           string   `json:"reg_num" validate:"notblank,max=100"`
	Subject          string   `json:"subject" validate:"notblank,max=500"`
	SignedOn         string   `json:"signed_on" validate:"required,datetime=2006-01-02"`
	ValidFrom        string   `json:"valid_from" validate:"required,datetime=2006-01-02"`
	Value            float64  `json:"value" validate:"gte=0"`
	Term             string   `json:"term,omitempty" validate:"max=255"`
	Guarantee        *float64 `json:"guarantee,omitempty" validate:"omitempty,gte=0"`
	WaysOfCollection string   `json:"ways_of_collection,omitempty" validate:"max=2000"`
	InformationList  string   `json:"information_list,omitempty" validate:"max=2000"`
	ResponsibleID    *string  `json:"responsible_id,omitempty" validate:"omitempty,uuid"`
	ControlledByID   *string  `json:"controlled_by_id,omitempty" validate:"omitempty,uuid"`
}

// ContractResponse represents a contract in API responses
type ContractResponse struct {
	ID               uuid.UUID           `json:"id"`
	RegNum           string              `json:"reg_num"`
	Subject          string              `json:"subject"`
	SignedOn         string              `json:"signed_on"`
	ValidFrom        string              `json:"valid_from"`
	Value            float64             `json:"value"`
	Term             string              `json:"term,omitempty"`
	Guarantee        *float64            `json:"guarantee,omitempty"`
	WaysOfCollection string              `json:"ways_of_collection,omitempty"`
	InformationList  string              `json:"information_list,omitempty"`
	Responsible      *DepartmentResponse `json:"responsible,omitempty"`
	ControlledBy     *DepartmentResponse `json:"controlled_by,omitempty"`
	OwnerID          string              `json:"owner_id"`
	Status           policy.Status       `json:"status"`
	CreatedAt        string              `json:"created_at"`
	UpdatedAt        string              `json:"updated_at"`
}

// ContractListResponse is one page of contracts plus the department filter options
type ContractListResponse struct {
	Contracts   []ContractResponse `json:"contracts"`
	Departments []string           `json:"departments"`
}

// ContractService defines the contract operations used by the handlers
type ContractService interface {
	List(ctx context.Context, principal *policy.Principal, q contract.ListQuery) (*contract.ListResult, error)
	Get(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error)
	Create(ctx context.Context, principal *policy.Principal, in contract.Input) (*models.Contract, error)
	Update(ctx context.Context, principal *policy.Principal, id uuid.UUID, in contract.Input) (*models.Contract, error)
	Delete(ctx context.Context, principal *policy.Principal, id uuid.UUID) error
	Approve(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error)
	Reject(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error)
	History(ctx context.Context, principal *policy.Principal, id uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
	Export(ctx context.Context, principal *policy.Principal, q contract.ListQuery) ([]byte, error)

	UploadFile(ctx context.Context, principal *policy.Principal, contractID uuid.UUID, fileName string, content []byte) (*models.ContractFile, error)
	ListFiles(ctx context.Context, principal *policy.Principal, contractID uuid.UUID) ([]*models.ContractFile, error)
	DownloadFile(ctx context.Context, principal *policy.Principal, contractID, fileID uuid.UUID) (*models.ContractFile, error)
	DeleteFile(ctx context.Context, principal *policy.Principal, contractID, fileID uuid.UUID) error
	MaxFileSize() int64
}

// ContractHandler handles contract-related HTTP requests
type ContractHandler struct {
	service ContractService
	logger  *zap.Logger
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(service ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /v1/contracts?subject=&department=&status=
func (h *ContractHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(ctx, middleware.GetPrincipalFromContext(ctx), q)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := ContractListResponse{
		Contracts:   make([]ContractResponse, len(result.Contracts)),
		Departments: result.Departments,
	}
	for i, c := range result.Contracts {
		response.Contracts[i] = contractToResponse(c)
	}

	h.logger.Debug("listed contracts",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int("count", len(response.Contracts)))

	_ = utils.WriteOK(w, response)
}

// HandleExport handles GET /v1/contracts/export with the same filters as the listing
func (h *ContractHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	data, err := h.service.Export(ctx, middleware.GetPrincipalFromContext(ctx), q)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteAttachment(w, "text/csv; charset=utf-8", "contracts.csv", data); err != nil {
		h.logger.Error("failed to write export", zap.Error(err))
	}
}

// HandleGet handles GET /v1/contracts/{id}
func (h *ContractHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(ctx, middleware.GetPrincipalFromContext(ctx), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, contractToResponse(c))
}

// HandleCreate handles POST /v1/contracts
func (h *ContractHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, middleware.GetPrincipalFromContext(ctx), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("contract created",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("contract_id", c.ID.String()))

	_ = utils.WriteCreated(w, contractToResponse(c))
}

// HandleUpdate handles PUT /v1/contracts/{id}
func (h *ContractHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	c, err := h.service.Update(ctx, middleware.GetPrincipalFromContext(ctx), id, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, contractToResponse(c))
}

// HandleDelete handles DELETE /v1/contracts/{id}
func (h *ContractHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, middleware.GetPrincipalFromContext(ctx), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleApprove handles POST /v1/contracts/{id}/approve
func (h *ContractHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve)
}

// HandleReject handles POST /v1/contracts/{id}/reject
func (h *ContractHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

// HandleHistory handles GET /v1/contracts/{id}/history
func (h *ContractHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	logs, err := h.service.History(ctx, middleware.GetPrincipalFromContext(ctx), id, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, logs)
}

type reviewFunc func(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error)

func (h *ContractHandler) review(w http.ResponseWriter, r *http.Request, fn reviewFunc) {
	ctx := r.Context()

	id, ok := h.contractID(w, r)
	if !ok {
		return
	}

	c, err := fn(ctx, middleware.GetPrincipalFromContext(ctx), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("contract reviewed",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("contract_id", c.ID.String()),
		zap.String("status", string(c.Status)))

	_ = utils.WriteOK(w, contractToResponse(c))
}

func (h *ContractHandler) contractID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "contract id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ContractHandler) listQuery(w http.ResponseWriter, r *http.Request) (contract.ListQuery, bool) {
	query := r.URL.Query()
	q := contract.ListQuery{
		Subject:    query.Get("subject"),
		Department: query.Get("department"),
	}

	if s := query.Get("status"); s != "" {
		q.Status = policy.Status(s)
		if !q.Status.Valid() {
			_ = utils.WriteBadRequest(w, "Invalid status", map[string]interface{}{"status": s})
			return q, false
		}
	}

	var ok bool
	q.Limit, q.Offset, ok = pagination(w, r)
	return q, ok
}

func (h *ContractHandler) decodeInput(w http.ResponseWriter, r *http.Request) (contract.Input, bool) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req ContractRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return contract.Input{}, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Debug("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return contract.Input{}, false
	}

	return req.toInput(), true
}

// toInput converts a validated request. Dates and ids were checked by the validator.
func (req *ContractRequest) toInput() contract.Input {
	signedOn, _ := time.Parse(dateLayout, req.SignedOn)
	validFrom, _ := time.Parse(dateLayout, req.ValidFrom)
	return contract.Input{
		RegNum:           req.RegNum,
		Subject:          req.Subject,
		SignedOn:         signedOn,
		ValidFrom:        validFrom,
		Value:            req.Value,
		Term:             req.Term,
		Guarantee:        req.Guarantee,
		WaysOfCollection: req.WaysOfCollection,
		InformationList:  req.InformationList,
		ResponsibleID:    optionalUUID(req.ResponsibleID),
		ControlledByID:   optionalUUID(req.ControlledByID),
	}
}

func optionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

// pagination reads limit and offset; zero means the service default
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	query := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			_ = utils.WriteBadRequest(w, "Invalid "+name, map[string]interface{}{name: raw})
			return 0, 0, false
		}
		*dst = n
	}
	return limit, offset, true
}

func contractToResponse(c *models.Contract) ContractResponse {
	return ContractResponse{
		ID:               c.ID,
		RegNum:           c.RegNum,
		Subject:          c.Subject,
		SignedOn:         c.SignedOn.Format(dateLayout),
		ValidFrom:        c.ValidFrom.Format(dateLayout),
		Value:            c.Value,
		Term:             c.Term,
		Guarantee:        c.Guarantee,
		WaysOfCollection: c.WaysOfCollection,
		InformationList:  c.InformationList,
		Responsible:      departmentToResponse(c.Responsible),
		ControlledBy:     departmentToResponse(c.ControlledBy),
		OwnerID:          c.OwnerID,
		Status:           c.Status,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
}
