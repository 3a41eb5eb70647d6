package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/regit-contracts/regit/middleware"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/services"
	"github.com/regit-contracts/regit/utils"
	"go.uber.org/zap"
)

// multipartOverhead is the allowance for form boundaries and headers on top of
// the file size limit
const multipartOverhead = 1 << 20

// FileResponse represents attachment metadata in API responses
type FileResponse struct {
	ID          uuid.UUID `json:"id"`
	ContractID  uuid.UUID `json:"contract_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   string    `json:"created_at"`
}

// HandleUploadFile handles POST /v1/contracts/{id}/files (multipart field "file")
func (h *ContractHandler) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	maxSize := h.service.MaxFileSize()
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleServiceError(w, services.ErrFileTooLarge, h.logger)
			return
		}
		_ = utils.WriteBadRequest(w, "Missing file field", nil)
		return
	}
	defer part.Close()

	// Read one byte past the limit so the service can tell "at" from "over"
	reader := io.Reader(part)
	if maxSize > 0 {
		reader = io.LimitReader(part, maxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		h.logger.Warn("failed to read upload",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Failed to read file", nil)
		return
	}

	file, err := h.service.UploadFile(ctx, middleware.GetPrincipalFromContext(ctx), contractID, header.Filename, content)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, fileToResponse(file))
}

// HandleListFiles handles GET /v1/contracts/{id}/files
func (h *ContractHandler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	files, err := h.service.ListFiles(ctx, middleware.GetPrincipalFromContext(ctx), contractID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]FileResponse, len(files))
	for i, f := range files {
		responses[i] = fileToResponse(f)
	}
	_ = utils.WriteOK(w, responses)
}

// HandleDownloadFile handles GET /v1/contracts/{id}/files/{fileID}
func (h *ContractHandler) HandleDownloadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractID, fileID, ok := h.fileIDs(w, r)
	if !ok {
		return
	}

	file, err := h.service.DownloadFile(ctx, middleware.GetPrincipalFromContext(ctx), contractID, fileID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteAttachment(w, file.ContentType, file.FileName, file.Content); err != nil {
		h.logger.Error("failed to write file", zap.Error(err))
	}
}

// HandleDeleteFile handles DELETE /v1/contracts/{id}/files/{fileID}
func (h *ContractHandler) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractID, fileID, ok := h.fileIDs(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteFile(ctx, middleware.GetPrincipalFromContext(ctx), contractID, fileID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

func (h *ContractHandler) fileIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	contractID, ok := h.contractID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	fileID, err := utils.ParseUUID(chi.URLParam(r, "fileID"), "file id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, uuid.Nil, false
	}
	return contractID, fileID, true
}

func fileToResponse(f *models.ContractFile) FileResponse {
	return FileResponse{
		ID:          f.ID,
		ContractID:  f.ContractID,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Size:        f.Size,
		UploadedBy:  f.UploadedBy,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
	}
}
