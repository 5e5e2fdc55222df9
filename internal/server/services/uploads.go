// Package services implements the upload pipeline and the batch merge
// engine on top of the remote object store and the upload ledger.
package services

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/printbatch/printbatch/internal/batch"
	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/server/models"
	"github.com/printbatch/printbatch/internal/server/repositories/uploads"
	"github.com/printbatch/printbatch/internal/server/storage"
)

const (
	// MaxFileSize is the per-file upload ceiling: 10 MiB.
	MaxFileSize = 10 * 1024 * 1024

	// PDFContentType is the only accepted declared media type.
	PDFContentType = "application/pdf"
)

// IncomingFile is one file of a multi-file upload request.
type IncomingFile struct {
	// Name is the user-supplied filename. Display only; untrusted.
	Name string
	// ContentType is the declared media type.
	ContentType string
	Size        int64
	Data        []byte
}

// UploadService validates incoming files, stores their bytes remotely and
// records them in the ledger.
type UploadService struct {
	store storage.Store
	repo  uploads.Repository
	log   logging.Logger
}

func NewUploadService(store storage.Store, repo uploads.Repository, log logging.Logger) *UploadService {
	return &UploadService{store: store, repo: repo, log: log.With("component", "uploads")}
}

// storageFileName generates a unique storage filename preserving the
// original extension. Never derived from user-supplied text beyond the
// extension, to rule out path injection and collisions.
func storageFileName(original string) string {
	ext := path.Ext(original)
	if ext == "" {
		ext = ".pdf"
	}
	return uuid.New().String() + ext
}

// Upload processes files in order and returns the number accepted. A
// validation or storage failure aborts the call, but files already stored
// and recorded stay committed; the returned count reports them.
func (s *UploadService) Upload(ctx context.Context, files []IncomingFile, batchLabel string, user *models.User) (int, error) {
	accepted := 0

	for _, f := range files {
		if f.Size == 0 && len(f.Data) == 0 {
			continue
		}
		if f.ContentType != PDFContentType {
			return accepted, fmt.Errorf("%w: %s has type %q", common.ErrInvalidFileType, f.Name, f.ContentType)
		}
		if f.Size > MaxFileSize || int64(len(f.Data)) > MaxFileSize {
			return accepted, fmt.Errorf("%w: %s exceeds %d bytes", common.ErrFileTooLarge, f.Name, MaxFileSize)
		}

		fileName := storageFileName(f.Name)
		desired := "uploads/" + batch.Normalize(batchLabel) + "/" + fileName

		actual, err := s.store.Put(ctx, f.Data, desired)
		if err != nil {
			return accepted, err
		}

		_, err = s.repo.Create(ctx, &models.Upload{
			FileName:         fileName,
			OriginalFileName: f.Name,
			StoragePath:      actual,
			Batch:            batchLabel,
			Size:             int64(len(f.Data)),
			UserID:           user.ID,
			UploadedAt:       time.Now().UTC(),
			Status:           models.StatusPending,
		})
		if err != nil {
			// The stored object is now orphaned; reconciliation is out of
			// scope, so record the loss and surface the error.
			s.log.Error(ctx, "ledger write failed, remote object orphaned",
				"path", actual, "batch", batchLabel, "error", err)
			return accepted, err
		}

		s.log.Info(ctx, "upload accepted",
			"path", actual, "batch", batchLabel, "user", user.ID, "size", len(f.Data))
		accepted++
	}

	return accepted, nil
}

// Delete removes a pending upload owned by user: remote object first, then
// the ledger row. When the remote delete fails the ledger row is kept, so
// the pointer to the still-existing object is not lost.
func (s *UploadService) Delete(ctx context.Context, id int64, user *models.User) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.UserID != user.ID {
		return fmt.Errorf("%w: upload %d belongs to another user", common.ErrUnauthorized, id)
	}
	if rec.Status != models.StatusPending {
		return fmt.Errorf("%w: upload %d is %s", common.ErrInvalidState, id, rec.Status)
	}

	if err := s.store.Delete(ctx, rec.StoragePath); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info(ctx, "upload deleted", "id", id, "path", rec.StoragePath, "user", user.ID)
	return nil
}

// ListUserUploads returns the user's uploads, newest first.
func (s *UploadService) ListUserUploads(ctx context.Context, user *models.User) ([]*models.Upload, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

// ListBatchPending returns the batch's pending uploads, oldest first.
func (s *UploadService) ListBatchPending(ctx context.Context, batchLabel string) ([]*models.Upload, error) {
	return s.repo.ListPendingByBatch(ctx, batchLabel)
}
