package contract

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/services"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	return m.Called(ctx, contract).Error(0)
}

func (m *MockContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		// Hand out a copy so services cannot mutate the fixture
		cp := *c.(*models.Contract)
		return &cp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractRepository) List(ctx context.Context, filter models.ContractFilter) ([]*models.Contract, error) {
	args := m.Called(ctx, filter)
	if c := args.Get(0); c != nil {
		return c.([]*models.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContractRepository) Update(ctx context.Context, contract *models.Contract) error {
	return m.Called(ctx, contract).Error(0)
}

func (m *MockContractRepository) UpdateStatus(ctx context.Context, contract *models.Contract) error {
	return m.Called(ctx, contract).Error(0)
}

func (m *MockContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContractRepository) ResponsibleDepartments(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if d := args.Get(0); d != nil {
		return d.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// memoryContracts serves List from a slice, applying the scope and paging
// the way the SQL repository does
type memoryContracts struct {
	*MockContractRepository
	rows  []*models.Contract
	calls int
}

func (m *memoryContracts) List(ctx context.Context, filter models.ContractFilter) ([]*models.Contract, error) {
	m.calls++
	matched := []*models.Contract{}
	for _, c := range m.rows {
		if filter.OwnerID != "" && c.OwnerID != filter.OwnerID {
			continue
		}
		if sc := filter.Scope; sc != nil {
			anyOwner := slices.Contains(sc.AnyOwner, c.Status)
			own := c.OwnerID == sc.ViewerID && slices.Contains(sc.OwnOnly, c.Status)
			if !anyOwner && !own {
				continue
			}
		}
		matched = append(matched, c)
	}
	if filter.Offset >= len(matched) {
		return []*models.Contract{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *memoryContracts) ResponsibleDepartments(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func withMemoryContracts(f *fixture, rows []*models.Contract) *memoryContracts {
	repo := &memoryContracts{MockContractRepository: f.contracts, rows: rows}
	f.service.contracts = repo
	return repo
}

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Create(ctx context.Context, file *models.ContractFile) error {
	return m.Called(ctx, file).Error(0)
}

func (m *MockFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContractFile, error) {
	args := m.Called(ctx, id)
	if f := args.Get(0); f != nil {
		return f.(*models.ContractFile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*models.ContractFile, error) {
	args := m.Called(ctx, contractID)
	if f := args.Get(0); f != nil {
		return f.([]*models.ContractFile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFileRepository) DeleteByContract(ctx context.Context, contractID uuid.UUID) error {
	return m.Called(ctx, contractID).Error(0)
}

// fakeTxManager runs the function in place and records the outcome
type fakeTxManager struct {
	committed  int
	rolledBack int
}

type fakeTx struct {
	ctx context.Context
	mgr *fakeTxManager
}

func (t *fakeTx) Commit() error { t.mgr.committed++; return nil }
func (t *fakeTx) Rollback() error { t.mgr.rolledBack++; return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &fakeTx{ctx: ctx, mgr: m}, nil
}

func (m *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return services.WithTransaction(ctx, m, fn)
}

type fakeDepartments struct {
	byID map[uuid.UUID]*models.Department
}

func (f *fakeDepartments) Get(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, services.ErrDepartmentNotFound
}

// recordingAudit captures audit calls
type recordingAudit struct {
	mu      sync.Mutex
	events  []models.AuditAction
	denied  []policy.Operation
	exports []int
	history []*models.AuditLog
}

func (a *recordingAudit) LogContractEvent(ctx context.Context, actor *policy.Principal, action models.AuditAction, op policy.Operation, contractID uuid.UUID, details interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, action)
	return nil
}

func (a *recordingAudit) LogFileEvent(ctx context.Context, actor *policy.Principal, action models.AuditAction, file *models.ContractFile) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, action)
	return nil
}

func (a *recordingAudit) LogExport(ctx context.Context, actor *policy.Principal, count int, filter map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exports = append(a.exports, count)
	return nil
}

func (a *recordingAudit) LogAccessDenied(ctx context.Context, actor *policy.Principal, op policy.Operation, resourceType string, resourceID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denied = append(a.denied, op)
	return nil
}

func (a *recordingAudit) ListForResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	return a.history, nil
}

var testNow = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

type fixture struct {
	service   *Service
	contracts *MockContractRepository
	files     *MockFileRepository
	tx        *fakeTxManager
	audit     *recordingAudit
	metrics   *observability.Metrics
	clock     clockwork.FakeClock
	depts     *fakeDepartments
}

func newFixture() *fixture {
	f := &fixture{
		contracts: new(MockContractRepository),
		files:     new(MockFileRepository),
		tx:        &fakeTxManager{},
		audit:     &recordingAudit{},
		metrics:   observability.NewMetrics(),
		clock:     clockwork.NewFakeClockAt(testNow),
		depts:     &fakeDepartments{byID: map[uuid.UUID]*models.Department{}},
	}
	f.service = NewService(Params{
		Contracts:   f.contracts,
		Files:       f.files,
		TxManager:   f.tx,
		Departments: f.depts,
		Engine:      policy.NewDefaultEngine(),
		Audit:       f.audit,
		Metrics:     f.metrics,
		Clock:       f.clock,
		Logger:      zap.NewNop(),
		MaxFileSize: 16,
	})
	return f
}

func (f *fixture) addDepartment(name string) *models.Department {
	d := models.NewDepartment(name, testNow)
	f.depts.byID[d.ID] = d
	return d
}

var (
	admin   = policy.NewPrincipal("root", policy.RoleAdministrator)
	manager = policy.NewPrincipal("u4", policy.RoleManager)
	owner   = policy.NewPrincipal("u2")
	other   = policy.NewPrincipal("u3")
)

func contractOwnedBy(ownerID string, status policy.Status) *models.Contract {
	c := models.NewContract(ownerID, testNow)
	c.RegNum = "123-321"
	c.Subject = "Consultation"
	c.SignedOn = testNow
	c.ValidFrom = testNow
	c.Value = 2337.99
	c.Status = status
	return c
}
