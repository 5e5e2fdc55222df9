package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/dbx"
	"github.com/printbatch/printbatch/internal/server/models"
)

// PostgresRepository implements the upload ledger over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uploadColumns = `id, file_name, original_file_name, storage_path, batch, size, user_id, uploaded_at, status`

func scanUpload(row interface{ Scan(dest ...any) error }) (*models.Upload, error) {
	var u models.Upload
	err := row.Scan(&u.ID, &u.FileName, &u.OriginalFileName, &u.StoragePath,
		&u.Batch, &u.Size, &u.UserID, &u.UploadedAt, &u.Status)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new ledger row. StoragePath must be the path the remote
// store actually used, not the desired one.
func (r *PostgresRepository) Create(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	query := `
		INSERT INTO uploads (file_name, original_file_name, storage_path, batch, size, user_id, uploaded_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		upload.FileName, upload.OriginalFileName, upload.StoragePath,
		upload.Batch, upload.Size, upload.UserID, upload.UploadedAt, upload.Status).
		Scan(&upload.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return upload, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE user_id = $1
		ORDER BY uploaded_at DESC, id DESC`
	return r.queryUploads(ctx, query, userID)
}

// ListPendingByBatch orders by uploaded_at with id as tiebreak so that a
// batch snapshot is deterministic even when two uploads share a timestamp.
func (r *PostgresRepository) ListPendingByBatch(ctx context.Context, batch string) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE batch = $1 AND status = 'pending'
		ORDER BY uploaded_at ASC, id ASC`
	return r.queryUploads(ctx, query, batch)
}

func (r *PostgresRepository) queryUploads(ctx context.Context, query string, args ...any) ([]*models.Upload, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkProcessed commits a merge against the exact id set captured at
// snapshot time. The status guard keeps the transition monotone: rows that
// were deleted (or already processed) in the meantime are skipped, and an
// upload that arrived after the snapshot is never touched because its id is
// not in the set.
func (r *PostgresRepository) MarkProcessed(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		`UPDATE uploads SET status = 'processed' WHERE id IN (%s) AND status = 'pending'`,
		strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
