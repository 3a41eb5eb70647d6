package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractFile is a binary attachment stored alongside a contract
type ContractFile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ContractID  uuid.UUID `json:"contract_id" db:"contract_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Content is only loaded for downloads
	Content []byte `json:"-" db:"content"`
}

// TableName returns the table name for the ContractFile model
func (ContractFile) TableName() string {
	return "contract_files"
}

// NewContractFile creates a file record for contractID
func NewContractFile(contractID uuid.UUID, fileName, contentType string, content []byte, uploadedBy string, now time.Time) *ContractFile {
	return &ContractFile{
		ID:          uuid.New(),
		ContractID:  contractID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(content)),
		UploadedBy:  uploadedBy,
		CreatedAt:   now,
		Content:     content,
	}
}
