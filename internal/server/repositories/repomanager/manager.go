package repomanager

import (
	"context"
	"database/sql"

	"github.com/printbatch/printbatch/internal/dbx"
	"github.com/printbatch/printbatch/internal/server/repositories/uploads"
	"github.com/printbatch/printbatch/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run a call against *sql.DB or inside a transaction with the
// same code path.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Uploads(db dbx.DBTX) uploads.Repository
	Users(db dbx.DBTX) users.Repository
}
