package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

const auditColumns = `
	id, actor_id, action, resource_type, resource_id, operation, decision,
	details, ip_address, user_agent, request_id, timestamp`

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (` + auditColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var details []byte
	if len(log.Details) > 0 {
		details = log.Details
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.Operation,
		log.Decision,
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `SELECT` + auditColumns + ` FROM audit_logs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	log, err := scanAuditLog(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError("failed to get audit log", err)
	}
	return log, nil
}

// ListByResource retrieves audit logs for one resource, newest first
func (r *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `SELECT` + auditColumns + `
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`

	return r.queryAuditLogs(ctx, query, resourceType, resourceID, limit, offset)
}

// ListRecent retrieves the newest audit logs
func (r *AuditRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	query := `SELECT` + auditColumns + `
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryAuditLogs(ctx, query, limit, offset)
}

// queryAuditLogs is a helper method to query multiple audit logs
func (r *AuditRepository) queryAuditLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	var (
		log     models.AuditLog
		details []byte
		ts      time.Time
	)
	err := row.Scan(
		&log.ID,
		&log.ActorID,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&log.Operation,
		&log.Decision,
		&details,
		&log.IPAddress,
		&log.UserAgent,
		&log.RequestID,
		&ts,
	)
	if err != nil {
		return nil, err
	}
	log.Details = details
	log.Timestamp = ts.UTC()
	return &log, nil
}
