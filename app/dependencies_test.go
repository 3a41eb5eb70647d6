package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/regit-contracts/regit/config"
	"github.com/regit-contracts/regit/identity"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/repositories/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		// Skip if database not available
		if !isDatabaseAvailable(t, cfg) {
			t.Skip("database not available")
		}

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Contracts)
		assert.NotNil(t, deps.ContractService)

		err = deps.Close(ctx)
		assert.NoError(t, err)
	})

	t.Run("database connection failure", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Database.Host = "invalid-host-that-does-not-exist"
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})
}

func TestNewDependenciesFromDB(t *testing.T) {
	t.Run("wires every component", func(t *testing.T) {
		deps, mock := newMockDependencies(t, testConfig(t))

		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Logger)
		assert.NotNil(t, deps.Metrics)

		assert.NotNil(t, deps.Contracts)
		assert.NotNil(t, deps.Departments)
		assert.NotNil(t, deps.Files)
		assert.NotNil(t, deps.AuditLogs)
		assert.NotNil(t, deps.TxManager)

		assert.Equal(t, []string{"administrator_override", "ownership", "manager_approval"}, deps.Engine.Rules())
		assert.True(t, deps.AuditService.GetStats().Started)
		assert.NotNil(t, deps.DepartmentService)
		assert.NotNil(t, deps.ContractService)
		assert.Equal(t, int64(16<<20), deps.ContractService.MaxFileSize())

		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.PrincipalMiddleware)
		assert.NotNil(t, deps.HealthHandler)
		assert.NotNil(t, deps.ContractHandler)
		assert.NotNil(t, deps.DepartmentHandler)
		assert.NotNil(t, deps.AuditHandler)

		mock.ExpectClose()
		require.NoError(t, deps.Close(context.Background()))
		assert.False(t, deps.AuditService.GetStats().Started)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loads role mapping file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roles.yaml")
		require.NoError(t, os.WriteFile(path, []byte("roles:\n  - name: Managers\n    groups: [legal-leads]\n"), 0o600))

		cfg := testConfig(t)
		cfg.Authorization.RolesFile = path
		deps, mock := newMockDependencies(t, cfg)
		t.Cleanup(func() {
			mock.ExpectClose()
			_ = deps.Close(context.Background())
		})

		principal := deps.Roles.Principal("u1", []string{"legal-leads"})
		assert.True(t, principal.HasRole(policy.RoleManager))
	})

	t.Run("missing role mapping file", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		cfg := testConfig(t)
		cfg.Authorization.RolesFile = filepath.Join(t.TempDir(), "missing.yaml")

		deps, err := NewDependenciesFromDB(cfg, db, zap.NewNop())
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize authorization")
	})
}

func TestIdentityValidatorAdapter(t *testing.T) {
	cfg := identity.Config{
		Secret:   "test-secret-test-secret-test-secret",
		Issuer:   "regit",
		Audience: "regit-api",
		TokenTTL: time.Hour,
	}
	token, err := identity.NewIssuer(cfg).Issue(identity.Subject{
		ID:     "u2",
		Email:  "u2@example.com",
		Name:   "User Two",
		Groups: []string{"managers"},
	})
	require.NoError(t, err)

	adapter := &identityValidatorAdapter{validator: identity.NewValidator(cfg)}

	t.Run("maps parsed claims", func(t *testing.T) {
		claims, err := adapter.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "u2", claims.Sub)
		assert.Equal(t, "u2@example.com", claims.Email)
		assert.Equal(t, "User Two", claims.Name)
		assert.Equal(t, []string{"managers"}, claims.Groups)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		claims, err := adapter.ValidateToken(context.Background(), "not-a-token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

// Test helpers

func newMockDependencies(t *testing.T, cfg *config.Config) (*Dependencies, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	deps, err := NewDependenciesFromDB(cfg, db, zaptest.NewLogger(t))
	require.NoError(t, err)
	return deps, mock
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		Database: config.DatabaseConfig{
			Host:            getEnvOrDefault("TEST_DB_HOST", "localhost"),
			Port:            5432,
			User:            getEnvOrDefault("TEST_DB_USER", "dev"),
			Password:        getEnvOrDefault("TEST_DB_PASSWORD", "dev"),
			Database:        getEnvOrDefault("TEST_DB_NAME", "regit_test"),
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret-test-secret-test-secret",
			Issuer:     "regit",
			Audience:   "regit-api",
			TokenTTL:   time.Hour,
			CookieName: "regit_token",
		},
		Uploads: config.UploadsConfig{MaxFileSize: 16 << 20},
		Audit:   config.AuditConfig{BufferSize: 16, WorkerCount: 1},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "console",
		},
	}
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func isDatabaseAvailable(t *testing.T, cfg *config.Config) bool {
	t.Helper()

	db, err := postgres.NewDB(cfg.Database, zap.NewNop())
	if err != nil {
		return false
	}
	_ = db.Close()
	return true
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
