package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
	"github.com/regit-contracts/regit/config"
	"github.com/regit-contracts/regit/repositories"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Wrap adopts an already opened pool
func Wrap(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Schema is the idempotent DDL for the registry
const Schema = `
	-- Departments table
	CREATE TABLE IF NOT EXISTS departments (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Contracts table
	CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY,
		reg_num VARCHAR(100) NOT NULL,
		subject VARCHAR(100) NOT NULL,
		signed_on DATE NOT NULL,
		valid_from DATE NOT NULL,
		value NUMERIC(18, 2) NOT NULL DEFAULT 0,
		term TEXT NOT NULL DEFAULT '',
		guarantee NUMERIC(18, 2),
		ways_of_collection TEXT NOT NULL DEFAULT '',
		information_list TEXT NOT NULL DEFAULT '',
		responsible_id UUID REFERENCES departments(id) ON DELETE SET NULL,
		controlled_by_id UUID REFERENCES departments(id) ON DELETE SET NULL,
		owner_id VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'submitted',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT contracts_status_check CHECK (status IN ('submitted', 'approved', 'rejected'))
	);

	-- Contract attachments
	CREATE TABLE IF NOT EXISTS contract_files (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		file_name VARCHAR(255) NOT NULL,
		content_type VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		content BYTEA NOT NULL,
		uploaded_by VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Audit logs table
	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		actor_id VARCHAR(255) NOT NULL DEFAULT '',
		action VARCHAR(100) NOT NULL,
		resource_type VARCHAR(100) NOT NULL,
		resource_id UUID,
		operation VARCHAR(50) NOT NULL DEFAULT '',
		decision VARCHAR(50) NOT NULL DEFAULT '',
		details JSONB,
		ip_address VARCHAR(45) NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		request_id VARCHAR(255) NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_contracts_owner_id ON contracts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
	CREATE INDEX IF NOT EXISTS idx_contracts_responsible_id ON contracts(responsible_id);
	CREATE INDEX IF NOT EXISTS idx_contract_files_contract_id ON contract_files(contract_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
`

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// translateError maps driver errors to repository sentinels
func translateError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", op, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectAffected turns a zero-row write into ErrNotFound
func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	return nil
}
