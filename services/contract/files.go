package contract

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/services"
	"go.uber.org/zap"
)

// MaxFileSize returns the upload limit in bytes
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// UploadFile attaches a file to a contract. Attaching counts as an update.
func (s *Service) UploadFile(ctx context.Context, principal *policy.Principal, contractID uuid.UUID, fileName string, content []byte) (*models.ContractFile, error) {
	contract, err := s.load(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, principal, policy.OpUpdate, contract); err != nil {
		return nil, err
	}

	if len(content) == 0 {
		return nil, services.ErrEmptyFile
	}
	if s.maxFileSize > 0 && int64(len(content)) > s.maxFileSize {
		return nil, services.ErrFileTooLarge
	}

	var uploadedBy string
	if principal != nil {
		uploadedBy = principal.ID
	}
	file := models.NewContractFile(contract.ID, cleanFileName(fileName), http.DetectContentType(content),
		content, uploadedBy, s.clock.Now().UTC())
	if err := s.files.Create(ctx, file); err != nil {
		return nil, services.WrapInternal("failed to store file", err)
	}

	if s.audit != nil {
		if err := s.audit.LogFileEvent(ctx, principal, models.AuditActionFileUploaded, file); err != nil {
			s.logger.Warn("failed to audit file upload", zap.Error(err))
		}
	}
	s.logger.Info("file uploaded",
		zap.String("contract_id", contract.ID.String()),
		zap.String("file_id", file.ID.String()),
		zap.Int64("size", file.Size))

	return file, nil
}

// ListFiles returns attachment metadata for a visible contract
func (s *Service) ListFiles(ctx context.Context, principal *policy.Principal, contractID uuid.UUID) ([]*models.ContractFile, error) {
	contract, err := s.Get(ctx, principal, contractID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, services.WrapInternal("failed to list files", err)
	}
	return files, nil
}

// DownloadFile returns an attachment with its content
func (s *Service) DownloadFile(ctx context.Context, principal *policy.Principal, contractID, fileID uuid.UUID) (*models.ContractFile, error) {
	contract, err := s.Get(ctx, principal, contractID)
	if err != nil {
		return nil, err
	}
	return s.loadFile(ctx, contract.ID, fileID)
}

// DeleteFile removes an attachment. Removing counts as an update.
func (s *Service) DeleteFile(ctx context.Context, principal *policy.Principal, contractID, fileID uuid.UUID) error {
	contract, err := s.load(ctx, contractID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, principal, policy.OpUpdate, contract); err != nil {
		return err
	}

	file, err := s.loadFile(ctx, contract.ID, fileID)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, file.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrFileNotFound
		}
		return services.WrapInternal("failed to delete file", err)
	}

	if s.audit != nil {
		if err := s.audit.LogFileEvent(ctx, principal, models.AuditActionFileDeleted, file); err != nil {
			s.logger.Warn("failed to audit file deletion", zap.Error(err))
		}
	}
	return nil
}

// loadFile fetches a file and checks it belongs to the contract
func (s *Service) loadFile(ctx context.Context, contractID, fileID uuid.UUID) (*models.ContractFile, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrFileNotFound
		}
		return nil, services.WrapInternal("failed to get file", err)
	}
	if file.ContractID != contractID {
		return nil, services.ErrFileNotFound
	}
	return file, nil
}

// cleanFileName strips any client supplied directory components
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == "/" {
		return "attachment"
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}
