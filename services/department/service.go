package department

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/services"
	"go.uber.org/zap"
)

// DefaultNames are the departments created by the seed command
var DefaultNames = []string{"Finance", "Legal", "Procurement", "IT"}

const maxNameLength = 255

// AuditLogger records department changes
type AuditLogger interface {
	LogDepartmentCreated(ctx context.Context, actor *policy.Principal, department *models.Department) error
}

// Service manages departments
type Service struct {
	repo   repositories.DepartmentRepository
	cache  *Cache
	audit  AuditLogger
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewService creates a department service. cache and audit may be nil.
func NewService(repo repositories.DepartmentRepository, cache *Cache, audit AuditLogger, clock clockwork.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		audit:  audit,
		clock:  clock,
		logger: logger,
	}
}

// List returns all departments ordered by name
func (s *Service) List(ctx context.Context) ([]*models.Department, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list departments", err)
	}
	for _, d := range departments {
		s.cache.Set(d)
	}
	return departments, nil
}

// Get returns a department by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	if d := s.cache.GetByID(id); d != nil {
		return d, nil
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	s.cache.Set(d)
	return d, nil
}

// GetByName returns a department by its unique name
func (s *Service) GetByName(ctx context.Context, name string) (*models.Department, error) {
	if d := s.cache.GetByName(name); d != nil && d.Name == name {
		return d, nil
	}

	d, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, s.lookupError(err)
	}
	s.cache.Set(d)
	return d, nil
}

// Create adds a department. Callers gate this on the administrator role.
func (s *Service) Create(ctx context.Context, actor *policy.Principal, name string) (*models.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "department name must be 1-255 characters", nil)
	}

	d := models.NewDepartment(name, s.clock.Now().UTC())
	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateDepartment
		}
		return nil, services.WrapInternal("failed to create department", err)
	}
	s.cache.Set(d)

	if s.audit != nil {
		if err := s.audit.LogDepartmentCreated(ctx, actor, d); err != nil {
			s.logger.Warn("failed to audit department creation", zap.Error(err))
		}
	}

	s.logger.Info("department created", zap.String("id", d.ID.String()), zap.String("name", d.Name))
	return d, nil
}

// EnsureDefaults creates any of names that do not exist yet and returns all of them
func (s *Service) EnsureDefaults(ctx context.Context, names []string) ([]*models.Department, error) {
	out := make([]*models.Department, 0, len(names))
	for _, name := range names {
		d, err := s.GetByName(ctx, name)
		if services.IsNotFoundError(err) {
			d, err = s.Create(ctx, nil, name)
			if errors.Is(err, services.ErrDuplicateDepartment) {
				d, err = s.GetByName(ctx, name)
			}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) lookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrDepartmentNotFound
	}
	return services.WrapInternal("failed to get department", err)
}
