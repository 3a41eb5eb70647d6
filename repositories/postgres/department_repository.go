package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"go.uber.org/zap"
)

// DepartmentRepository implements the repositories.DepartmentRepository interface
type DepartmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *DB, logger *zap.Logger) repositories.DepartmentRepository {
	return &DepartmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new department
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	query := `INSERT INTO departments (id, name, created_at) VALUES ($1, $2, $3)`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, department.ID, department.Name, department.CreatedAt); err != nil {
		return translateError("failed to create department", err)
	}

	r.logger.Debug("department created", zap.String("id", department.ID.String()), zap.String("name", department.Name))
	return nil
}

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	query := `SELECT id, name, created_at FROM departments WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	d := &models.Department{}
	if err := executor.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return nil, translateError("failed to get department", err)
	}
	return d, nil
}

// GetByName retrieves a department by its unique name
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*models.Department, error) {
	query := `SELECT id, name, created_at FROM departments WHERE name = $1`

	executor := GetExecutor(ctx, r.db)
	d := &models.Department{}
	if err := executor.QueryRowContext(ctx, query, name).Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return nil, translateError("failed to get department", err)
	}
	return d, nil
}

// List returns all departments ordered by name
func (r *DepartmentRepository) List(ctx context.Context) ([]*models.Department, error) {
	query := `SELECT id, name, created_at FROM departments ORDER BY name`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	departments := []*models.Department{}
	for rows.Next() {
		d := &models.Department{}
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating department rows: %w", err)
	}
	return departments, nil
}
