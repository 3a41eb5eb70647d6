package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"go.uber.org/zap"
)

// FileRepository implements the repositories.FileRepository interface
type FileRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *DB, logger *zap.Logger) repositories.FileRepository {
	return &FileRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a file with its content
func (r *FileRepository) Create(ctx context.Context, file *models.ContractFile) error {
	query := `
		INSERT INTO contract_files (id, contract_id, file_name, content_type, size, content, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		file.ID,
		file.ContractID,
		file.FileName,
		file.ContentType,
		file.Size,
		file.Content,
		file.UploadedBy,
		file.CreatedAt,
	)
	if err != nil {
		return translateError("failed to create file", err)
	}

	r.logger.Debug("file stored",
		zap.String("id", file.ID.String()),
		zap.String("contract_id", file.ContractID.String()),
		zap.Int64("size", file.Size))
	return nil
}

// GetByID retrieves a file including its content
func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContractFile, error) {
	query := `
		SELECT id, contract_id, file_name, content_type, size, uploaded_by, created_at, content
		FROM contract_files
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	f := &models.ContractFile{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&f.ID,
		&f.ContractID,
		&f.FileName,
		&f.ContentType,
		&f.Size,
		&f.UploadedBy,
		&f.CreatedAt,
		&f.Content,
	)
	if err != nil {
		return nil, translateError("failed to get file", err)
	}
	return f, nil
}

// ListByContract returns file metadata without content
func (r *FileRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*models.ContractFile, error) {
	query := `
		SELECT id, contract_id, file_name, content_type, size, uploaded_by, created_at
		FROM contract_files
		WHERE contract_id = $1
		ORDER BY created_at
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := []*models.ContractFile{}
	for rows.Next() {
		f := &models.ContractFile{}
		if err := rows.Scan(&f.ID, &f.ContractID, &f.FileName, &f.ContentType, &f.Size, &f.UploadedBy, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}
	return files, nil
}

// Delete deletes a file
func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	res, err := executor.ExecContext(ctx, `DELETE FROM contract_files WHERE id = $1`, id)
	if err != nil {
		return translateError("failed to delete file", err)
	}
	return expectAffected("failed to delete file", res)
}

// DeleteByContract deletes every file of a contract
func (r *FileRepository) DeleteByContract(ctx context.Context, contractID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, `DELETE FROM contract_files WHERE contract_id = $1`, contractID); err != nil {
		return translateError("failed to delete contract files", err)
	}
	return nil
}
