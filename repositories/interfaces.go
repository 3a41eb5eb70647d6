package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/models"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context bound to the transaction
	Context() context.Context
}

// ContractRepository handles contract data operations
type ContractRepository interface {
	// Create inserts a new contract
	Create(ctx context.Context, contract *models.Contract) error

	// GetByID retrieves a contract with its departments
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)

	// List returns contracts matching the filter, newest signature first
	List(ctx context.Context, filter models.ContractFilter) ([]*models.Contract, error)

	// Update writes the editable fields of a contract; owner and status are untouched
	Update(ctx context.Context, contract *models.Contract) error

	// UpdateStatus changes only the status of a contract
	UpdateStatus(ctx context.Context, contract *models.Contract) error

	// Delete deletes a contract
	Delete(ctx context.Context, id uuid.UUID) error

	// ResponsibleDepartments returns the distinct names of departments responsible for any contract
	ResponsibleDepartments(ctx context.Context) ([]string, error)
}

// DepartmentRepository handles department data operations
type DepartmentRepository interface {
	Create(ctx context.Context, department *models.Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Department, error)
	GetByName(ctx context.Context, name string) (*models.Department, error)
	List(ctx context.Context) ([]*models.Department, error)
}

// FileRepository handles contract attachments
type FileRepository interface {
	// Create stores a file with its content
	Create(ctx context.Context, file *models.ContractFile) error

	// GetByID retrieves a file including its content
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContractFile, error)

	// ListByContract returns file metadata for a contract, without content
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*models.ContractFile, error)

	// Delete deletes a file
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByContract deletes every file of a contract
	DeleteByContract(ctx context.Context, contractID uuid.UUID) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// ListByResource retrieves audit logs for one resource, newest first
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// ListRecent retrieves the newest audit logs
	ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Contracts   ContractRepository
	Departments DepartmentRepository
	Files       FileRepository
	AuditLogs   AuditRepository
}
