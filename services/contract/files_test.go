package contract

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_UploadFile(t *testing.T) {
	ctx := context.Background()
	pdf := []byte("%PDF-1.4 scan")

	t.Run("owner uploads and the type is sniffed", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)
		f.files.On("Create", mock.Anything, mock.Anything).Return(nil)

		file, err := f.service.UploadFile(ctx, owner, c.ID, `C:\Users\u2\scan.pdf`, pdf)
		require.NoError(t, err)
		assert.Equal(t, "scan.pdf", file.FileName)
		assert.Equal(t, "application/pdf", file.ContentType)
		assert.Equal(t, int64(len(pdf)), file.Size)
		assert.Equal(t, "u2", file.UploadedBy)
		assert.Equal(t, c.ID, file.ContractID)
		assert.Equal(t, []models.AuditAction{models.AuditActionFileUploaded}, f.audit.events)
	})

	t.Run("authorization is checked before size", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)

		_, err := f.service.UploadFile(ctx, manager, c.ID, "big.bin", make([]byte, 1024))
		assert.ErrorIs(t, err, services.ErrAccessDenied)
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)

		_, err := f.service.UploadFile(ctx, owner, c.ID, "big.bin", make([]byte, 17))
		assert.True(t, services.IsPayloadTooLargeError(err))
		f.files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)

		_, err := f.service.UploadFile(ctx, owner, c.ID, "empty.txt", nil)
		assert.ErrorIs(t, err, services.ErrEmptyFile)
	})

	t.Run("missing contract", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.contracts.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

		_, err := f.service.UploadFile(ctx, owner, id, "scan.pdf", pdf)
		assert.ErrorIs(t, err, services.ErrContractNotFound)
	})
}

func TestService_DownloadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("file of another contract is not found", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		file := models.NewContractFile(uuid.New(), "x.txt", "text/plain", []byte("x"), "u9", testNow)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)
		f.files.On("GetByID", mock.Anything, file.ID).Return(file, nil)

		_, err := f.service.DownloadFile(ctx, owner, c.ID, file.ID)
		assert.ErrorIs(t, err, services.ErrFileNotFound)
	})

	t.Run("reader gets content", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		file := models.NewContractFile(c.ID, "x.txt", "text/plain", []byte("x"), "u2", testNow)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)
		f.files.On("GetByID", mock.Anything, file.ID).Return(file, nil)

		got, err := f.service.DownloadFile(ctx, admin, c.ID, file.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), got.Content)
	})

	t.Run("other user is denied before the file is looked up", func(t *testing.T) {
		f := newFixture()
		c := contractOwnedBy("u2", policy.StatusSubmitted)
		f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)

		_, err := f.service.DownloadFile(ctx, other, c.ID, uuid.New())
		assert.ErrorIs(t, err, services.ErrAccessDenied)
		f.files.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestService_ListAndDeleteFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := contractOwnedBy("u2", policy.StatusSubmitted)
	file := models.NewContractFile(c.ID, "x.txt", "text/plain", []byte("x"), "u2", testNow)
	f.contracts.On("GetByID", mock.Anything, c.ID).Return(c, nil)
	f.files.On("ListByContract", mock.Anything, c.ID).Return([]*models.ContractFile{file}, nil)
	f.files.On("GetByID", mock.Anything, file.ID).Return(file, nil)
	f.files.On("Delete", mock.Anything, file.ID).Return(nil)

	files, err := f.service.ListFiles(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	assert.ErrorIs(t, f.service.DeleteFile(ctx, manager, c.ID, file.ID), services.ErrAccessDenied)
	require.NoError(t, f.service.DeleteFile(ctx, owner, c.ID, file.ID))
	assert.Equal(t, []models.AuditAction{models.AuditActionFileDeleted}, f.audit.events)
}

func TestCleanFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":        "report.pdf",
		"../../etc/passwd":  "passwd",
		`C:\docs\scan.pdf`:  "scan.pdf",
		"   ":               "attachment",
		"dir/":              "dir",
		"":                  "attachment",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanFileName(in), in)
	}
}
