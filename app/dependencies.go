package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/config"
	"github.com/regit-contracts/regit/handlers"
	"github.com/regit-contracts/regit/identity"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/middleware"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/repositories/postgres"
	"github.com/regit-contracts/regit/services/audit"
	"github.com/regit-contracts/regit/services/contract"
	"github.com/regit-contracts/regit/services/department"
	"go.uber.org/zap"
)

const (
	departmentCacheSize = 256
	departmentCacheTTL  = 5 * time.Minute
	auditStopTimeout    = 5 * time.Second
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Contracts   repositories.ContractRepository
	Departments repositories.DepartmentRepository
	Files       repositories.FileRepository
	AuditLogs   repositories.AuditRepository
	TxManager   repositories.TransactionManager

	// Authorization
	Engine *policy.Engine
	Roles  *policy.RoleMapping

	// Services
	AuditService      *audit.AuditService
	DepartmentService *department.Service
	ContractService   *contract.Service

	// HTTP
	AuthMiddleware      *middleware.AuthMiddleware
	PrincipalMiddleware *middleware.PrincipalMiddleware
	HealthHandler       *handlers.HealthHandler
	ContractHandler     *handlers.ContractHandler
	DepartmentHandler   *handlers.DepartmentHandler
	AuditHandler        *handlers.AuditHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.wire(cfg); err != nil {
		_ = deps.RepoFactory.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromDB wires the application around an already opened pool.
// The schema is left untouched.
func NewDependenciesFromDB(cfg *config.Config, db *sql.DB, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	deps.RepoFactory = postgres.NewRepositoryFactoryFromDB(postgres.Wrap(db, logger), logger)
	deps.DB = deps.RepoFactory.GetDB()

	if err := deps.wire(cfg); err != nil {
		return nil, err
	}
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

func (d *Dependencies) wire(cfg *config.Config) error {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	d.Metrics = observability.NewMetrics()

	d.initRepositories()

	if err := d.initAuthorization(cfg); err != nil {
		return fmt.Errorf("failed to initialize authorization: %w", err)
	}

	if err := d.initServices(cfg); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	d.initHTTP(cfg)
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Contracts = repos.Contracts
	d.Departments = repos.Departments
	d.Files = repos.Files
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initAuthorization(cfg *config.Config) error {
	d.Engine = policy.NewDefaultEngine()

	if cfg.Authorization.RolesFile == "" {
		d.Roles = policy.DefaultRoleMapping()
	} else {
		roles, err := policy.LoadRoleMapping(cfg.Authorization.RolesFile)
		if err != nil {
			return err
		}
		d.Roles = roles
	}

	d.Logger.Info("authorization engine ready",
		zap.Strings("rules", d.Engine.Rules()),
		zap.String("roles_file", cfg.Authorization.RolesFile))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
		Clock:       d.Clock,
		Metrics:     d.Metrics,
	})
	if err := d.AuditService.Start(); err != nil {
		return err
	}

	cache := department.NewCache(departmentCacheSize, departmentCacheTTL, d.Clock)
	d.DepartmentService = department.NewService(d.Departments, cache, d.AuditService, d.Clock, d.Logger)

	d.ContractService = contract.NewService(contract.Params{
		Contracts:   d.Contracts,
		Files:       d.Files,
		TxManager:   d.TxManager,
		Departments: d.DepartmentService,
		Engine:      d.Engine,
		Audit:       d.AuditService,
		Metrics:     d.Metrics,
		Clock:       d.Clock,
		Logger:      d.Logger,
		MaxFileSize: cfg.Uploads.MaxFileSize,
	})
	return nil
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	validator := identity.NewValidator(identity.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TokenTTL: cfg.Auth.TokenTTL,
		Clock:    d.Clock,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(&identityValidatorAdapter{validator: validator}, d.Logger).
		WithCookieName(cfg.Auth.CookieName)
	d.PrincipalMiddleware = middleware.NewPrincipalMiddleware(d.Roles, d.Logger)

	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.AuditService, d.Logger)
	d.ContractHandler = handlers.NewContractHandler(d.ContractService, d.Logger)
	d.DepartmentHandler = handlers.NewDepartmentHandler(d.DepartmentService, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.AuditService, d.Logger)
}

// identityValidatorAdapter adapts identity.Validator to middleware.TokenValidator
type identityValidatorAdapter struct {
	validator *identity.Validator
}

func (a *identityValidatorAdapter) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	parsed, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		Sub:    parsed.Subject,
		Email:  parsed.Email,
		Name:   parsed.Name,
		Groups: parsed.Groups,
	}, nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
