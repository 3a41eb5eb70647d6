package contract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/services"
	"go.uber.org/zap"
)

const resourceType = "contract"

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// foreignOwner stands in for "someone other than the viewer" when listings
// ask the engine which statuses are visible regardless of owner.
const foreignOwner = "\x00foreign"

var listStatuses = []policy.Status{policy.StatusSubmitted, policy.StatusApproved, policy.StatusRejected}

// Authorizer decides whether a principal may perform an operation on a resource.
// Listings derive their SQL scope by evaluating a record owned by the viewer
// and one owned by someone else in each status, so rules may depend on the
// owner only through equality with the principal's ID.
type Authorizer interface {
	Evaluate(principal *policy.Principal, op policy.Operation, resource *policy.Resource) policy.Decision
}

// AuditLogger records contract activity
type AuditLogger interface {
	LogContractEvent(ctx context.Context, actor *policy.Principal, action models.AuditAction, op policy.Operation, contractID uuid.UUID, details interface{}) error
	LogFileEvent(ctx context.Context, actor *policy.Principal, action models.AuditAction, file *models.ContractFile) error
	LogExport(ctx context.Context, actor *policy.Principal, count int, filter map[string]string) error
	LogAccessDenied(ctx context.Context, actor *policy.Principal, op policy.Operation, resourceType string, resourceID uuid.UUID) error
	ListForResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

// DepartmentLookup resolves department references
type DepartmentLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Department, error)
}

// Input holds the editable fields of a contract
type Input struct {
	RegNum           string
	Subject          string
	SignedOn         time.Time
	ValidFrom        time.Time
	Value            float64
	Term             string
	Guarantee        *float64
	WaysOfCollection string
	InformationList  string
	ResponsibleID    *uuid.UUID
	ControlledByID   *uuid.UUID
}

// ListQuery filters the contract listing
type ListQuery struct {
	Subject    string // case-insensitive substring
	Department string // responsible department name
	Status     policy.Status
	Limit      int
	Offset     int
}

// ListResult is one page of visible contracts plus the department filter options
type ListResult struct {
	Contracts   []*models.Contract `json:"contracts"`
	Departments []string           `json:"departments"`
}

// Params wires the contract service
type Params struct {
	Contracts   repositories.ContractRepository
	Files       repositories.FileRepository
	TxManager   repositories.TransactionManager
	Departments DepartmentLookup
	Engine      Authorizer
	Audit       AuditLogger
	Metrics     *observability.Metrics
	Clock       clockwork.Clock
	Logger      *zap.Logger
	MaxFileSize int64
}

// Service implements the guarded contract operations. Every action loads the
// record first (404), then asks the engine (403), then mutates and audits.
type Service struct {
	contracts   repositories.ContractRepository
	files       repositories.FileRepository
	txMgr       repositories.TransactionManager
	departments DepartmentLookup
	engine      Authorizer
	audit       AuditLogger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	logger      *zap.Logger
	maxFileSize int64
}

// NewService creates a new contract service
func NewService(p Params) *Service {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		contracts:   p.Contracts,
		files:       p.Files,
		txMgr:       p.TxManager,
		departments: p.Departments,
		engine:      p.Engine,
		audit:       p.Audit,
		metrics:     p.Metrics,
		clock:       clock,
		logger:      logger,
		maxFileSize: p.MaxFileSize,
	}
}

// List returns the contracts the principal may see, narrowed by q
func (s *Service) List(ctx context.Context, principal *policy.Principal, q ListQuery) (*ListResult, error) {
	result := &ListResult{Contracts: []*models.Contract{}, Departments: []string{}}

	filter, ok := s.filterFor(principal, q)
	if !ok {
		return result, nil
	}
	filter.Limit = clampLimit(q.Limit)
	filter.Offset = max(q.Offset, 0)

	contracts, _, err := s.fetch(ctx, principal, filter)
	if err != nil {
		return nil, err
	}
	result.Contracts = contracts

	departments, err := s.contracts.ResponsibleDepartments(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list departments", err)
	}
	result.Departments = departments

	return result, nil
}

// filterFor translates q into a repository filter scoped to what principal
// may see. ok is false when nothing can be visible.
func (s *Service) filterFor(principal *policy.Principal, q ListQuery) (models.ContractFilter, bool) {
	filter := models.ContractFilter{
		Subject:     q.Subject,
		Responsible: strings.TrimSpace(q.Department),
		Status:      q.Status,
	}
	if principal == nil {
		return filter, false
	}

	scope := &models.ContractScope{ViewerID: principal.ID}
	for _, status := range listStatuses {
		if s.visibleAs(principal, &policy.Resource{OwnerID: foreignOwner, Status: status}) {
			scope.AnyOwner = append(scope.AnyOwner, status)
			continue
		}
		if principal.ID != "" && s.visibleAs(principal, &policy.Resource{OwnerID: principal.ID, Status: status}) {
			scope.OwnOnly = append(scope.OwnOnly, status)
		}
	}

	switch {
	case len(scope.AnyOwner) == len(listStatuses):
		// unrestricted
	case len(scope.AnyOwner) == 0 && len(scope.OwnOnly) == 0:
		return filter, false
	default:
		filter.Scope = scope
	}
	return filter, true
}

// fetch reads one page and keeps the rows the engine lets principal see.
// fetched is the raw page length, used to detect the last page.
func (s *Service) fetch(ctx context.Context, principal *policy.Principal, filter models.ContractFilter) (contracts []*models.Contract, fetched int, err error) {
	rows, err := s.contracts.List(ctx, filter)
	if err != nil {
		return nil, 0, services.WrapInternal("failed to list contracts", err)
	}
	contracts = make([]*models.Contract, 0, len(rows))
	for _, c := range rows {
		if s.visible(principal, c) {
			contracts = append(contracts, c)
		}
	}
	return contracts, len(rows), nil
}

// Get returns one contract
func (s *Service) Get(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visible(principal, contract) {
		s.denied(ctx, principal, policy.OpRead, contract.ID)
		return nil, services.ErrAccessDenied
	}
	return contract, nil
}

// Create registers a contract owned by the principal with status submitted
func (s *Service) Create(ctx context.Context, principal *policy.Principal, in Input) (*models.Contract, error) {
	var ownerID string
	if principal != nil {
		ownerID = principal.ID
	}
	contract := models.NewContract(ownerID, s.clock.Now().UTC())
	if err := s.authorize(ctx, principal, policy.OpCreate, contract); err != nil {
		return nil, err
	}

	apply(contract, in)
	if err := s.resolveDepartments(ctx, contract); err != nil {
		return nil, err
	}

	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, services.WrapInternal("failed to create contract", err)
	}

	s.record(ctx, principal, models.AuditActionContractCreated, policy.OpCreate, contract.ID, map[string]interface{}{
		"reg_num": contract.RegNum,
		"subject": contract.Subject,
	})
	s.logger.Info("contract created",
		zap.String("id", contract.ID.String()),
		zap.String("owner_id", contract.OwnerID))

	return contract, nil
}

// Update replaces the editable fields. Owner and status are preserved.
func (s *Service) Update(ctx context.Context, principal *policy.Principal, id uuid.UUID, in Input) (*models.Contract, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, principal, policy.OpUpdate, contract); err != nil {
		return nil, err
	}

	changes := changedFields(contract, in)
	apply(contract, in)
	if err := s.resolveDepartments(ctx, contract); err != nil {
		return nil, err
	}
	contract.UpdatedAt = s.clock.Now().UTC()

	if err := s.contracts.Update(ctx, contract); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrContractNotFound
		}
		return nil, services.WrapInternal("failed to update contract", err)
	}

	s.record(ctx, principal, models.AuditActionContractUpdated, policy.OpUpdate, contract.ID, map[string]interface{}{
		"changes": changes,
	})
	return contract, nil
}

// Delete removes a contract together with its files
func (s *Service) Delete(ctx context.Context, principal *policy.Principal, id uuid.UUID) error {
	contract, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, principal, policy.OpDelete, contract); err != nil {
		return err
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.files.DeleteByContract(ctx, id); err != nil {
			return err
		}
		return s.contracts.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrContractNotFound
		}
		return services.WrapInternal("failed to delete contract", err)
	}

	s.record(ctx, principal, models.AuditActionContractDeleted, policy.OpDelete, id, map[string]interface{}{
		"reg_num": contract.RegNum,
	})
	s.logger.Info("contract deleted", zap.String("id", id.String()))
	return nil
}

// Approve marks a contract approved
func (s *Service) Approve(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, principal, id, policy.OpApprove, policy.StatusApproved, models.AuditActionContractApproved)
}

// Reject marks a contract rejected
func (s *Service) Reject(ctx context.Context, principal *policy.Principal, id uuid.UUID) (*models.Contract, error) {
	return s.transition(ctx, principal, id, policy.OpReject, policy.StatusRejected, models.AuditActionContractRejected)
}

// History returns the audit trail of a contract
func (s *Service) History(ctx context.Context, principal *policy.Principal, id uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	contract, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []*models.AuditLog{}, nil
	}
	return s.audit.ListForResource(ctx, resourceType, contract.ID, limit, offset)
}

func (s *Service) transition(ctx context.Context, principal *policy.Principal, id uuid.UUID, op policy.Operation, status policy.Status, action models.AuditAction) (*models.Contract, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, principal, op, contract); err != nil {
		return nil, err
	}

	previous := contract.Status
	contract.Status = status
	contract.UpdatedAt = s.clock.Now().UTC()
	if err := s.contracts.UpdateStatus(ctx, contract); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrContractNotFound
		}
		return nil, services.WrapInternal("failed to update contract status", err)
	}

	s.record(ctx, principal, action, op, contract.ID, map[string]interface{}{
		"from": previous,
		"to":   status,
	})
	return contract, nil
}

// load fetches a contract or reports it missing
func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrContractNotFound
		}
		return nil, services.WrapInternal("failed to get contract", err)
	}
	return contract, nil
}

// authorize asks the engine and turns Forbidden into ErrAccessDenied
func (s *Service) authorize(ctx context.Context, principal *policy.Principal, op policy.Operation, contract *models.Contract) error {
	if s.decide(principal, op, contract).Allowed() {
		return nil
	}
	s.denied(ctx, principal, op, contract.ID)
	return services.ErrAccessDenied
}

func (s *Service) decide(principal *policy.Principal, op policy.Operation, contract *models.Contract) policy.Decision {
	decision := policy.Forbidden
	if s.engine != nil {
		decision = s.engine.Evaluate(principal, op, contract.Resource())
	}
	s.metrics.RecordDecision(op.String(), decision.String())
	return decision
}

// visibleAs applies the visibility rule to a hypothetical record without
// recording a decision.
func (s *Service) visibleAs(principal *policy.Principal, resource *policy.Resource) bool {
	if s.engine == nil {
		return false
	}
	if s.engine.Evaluate(principal, policy.OpRead, resource).Allowed() {
		return true
	}
	return resource.Status == policy.StatusSubmitted &&
		s.engine.Evaluate(principal, policy.OpApprove, resource).Allowed()
}

// visible reports whether a contract may be shown: readable, or awaiting a
// review the principal is allowed to make.
func (s *Service) visible(principal *policy.Principal, contract *models.Contract) bool {
	if s.decide(principal, policy.OpRead, contract).Allowed() {
		return true
	}
	return contract.Status == policy.StatusSubmitted &&
		s.decide(principal, policy.OpApprove, contract).Allowed()
}

func (s *Service) denied(ctx context.Context, principal *policy.Principal, op policy.Operation, id uuid.UUID) {
	principalID := ""
	if principal != nil {
		principalID = principal.ID
	}
	s.logger.Debug("access denied",
		zap.String("principal", principalID),
		zap.String("operation", op.String()),
		zap.String("contract_id", id.String()))

	if s.audit == nil {
		return
	}
	if err := s.audit.LogAccessDenied(ctx, principal, op, resourceType, id); err != nil {
		s.logger.Warn("failed to audit access denial", zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, principal *policy.Principal, action models.AuditAction, op policy.Operation, id uuid.UUID, details interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogContractEvent(ctx, principal, action, op, id, details); err != nil {
		s.logger.Warn("failed to audit contract event",
			zap.Error(err),
			zap.String("action", string(action)),
			zap.String("contract_id", id.String()))
	}
}

// resolveDepartments checks the referenced departments exist and attaches them
func (s *Service) resolveDepartments(ctx context.Context, contract *models.Contract) error {
	var err error
	if contract.Responsible, err = s.department(ctx, contract.ResponsibleID, "responsible_id"); err != nil {
		return err
	}
	contract.ControlledBy, err = s.department(ctx, contract.ControlledByID, "controlled_by_id")
	return err
}

func (s *Service) department(ctx context.Context, id *uuid.UUID, field string) (*models.Department, error) {
	if id == nil {
		return nil, nil
	}
	d, err := s.departments.Get(ctx, *id)
	if err != nil {
		if services.IsNotFoundError(err) {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "unknown department", err).
				WithDetail(field, id.String())
		}
		return nil, err
	}
	return d, nil
}

func apply(c *models.Contract, in Input) {
	c.RegNum = strings.TrimSpace(in.RegNum)
	c.Subject = strings.TrimSpace(in.Subject)
	c.SignedOn = in.SignedOn
	c.ValidFrom = in.ValidFrom
	c.Value = in.Value
	c.Term = in.Term
	c.Guarantee = in.Guarantee
	c.WaysOfCollection = in.WaysOfCollection
	c.InformationList = in.InformationList
	c.ResponsibleID = in.ResponsibleID
	c.ControlledByID = in.ControlledByID
}

func changedFields(c *models.Contract, in Input) []string {
	changes := []string{}
	add := func(name string, changed bool) {
		if changed {
			changes = append(changes, name)
		}
	}
	add("reg_num", c.RegNum != strings.TrimSpace(in.RegNum))
	add("subject", c.Subject != strings.TrimSpace(in.Subject))
	add("signed_on", !c.SignedOn.Equal(in.SignedOn))
	add("valid_from", !c.ValidFrom.Equal(in.ValidFrom))
	add("value", c.Value != in.Value)
	add("term", c.Term != in.Term)
	add("guarantee", !equalFloat(c.Guarantee, in.Guarantee))
	add("ways_of_collection", c.WaysOfCollection != in.WaysOfCollection)
	add("information_list", c.InformationList != in.InformationList)
	add("responsible_id", !equalID(c.ResponsibleID, in.ResponsibleID))
	add("controlled_by_id", !equalID(c.ControlledByID, in.ControlledByID))
	return changes
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
