package uploads

import (
	"context"

	"github.com/printbatch/printbatch/internal/server/models"
)

// Repository is the upload ledger: durable metadata and status for every
// stored object, independent of where the bytes live.
type Repository interface {
	Create(ctx context.Context, upload *models.Upload) (*models.Upload, error)
	GetByID(ctx context.Context, id int64) (*models.Upload, error)

	// ListByUser returns the user's uploads, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.Upload, error)

	// ListPendingByBatch returns pending uploads for the batch, oldest
	// first. The order is deterministic and governs merge page order.
	ListPendingByBatch(ctx context.Context, batch string) ([]*models.Upload, error)

	// MarkProcessed flips the given records from pending to processed and
	// reports how many rows changed. Records that are no longer pending are
	// left untouched; status transitions are monotone.
	MarkProcessed(ctx context.Context, ids []int64) (int64, error)

	// Delete removes the ledger row. Callers are responsible for the
	// ownership and pending-status checks, and for deleting the remote
	// object first.
	Delete(ctx context.Context, id int64) error
}
