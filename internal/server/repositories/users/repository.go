package users

import (
	"context"

	"github.com/printbatch/printbatch/internal/server/models"
)

// Repository is the narrow user-directory lookup the upload pipeline needs.
// Account lifecycle (registration, verification, sessions) belongs to the
// external identity component and is not part of this interface.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
