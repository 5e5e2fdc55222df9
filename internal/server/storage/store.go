// Package storage implements the remote object store for uploaded PDFs on
// top of the GitHub contents API: a path-addressed, revision-tracked byte
// store with bounded retries around every mutating call.
package storage

import (
	"context"
	"fmt"

	"github.com/printbatch/printbatch/internal/common"
)

// Store is the remote object store consumed by the upload pipeline and the
// merge engine. Implementations are safe for concurrent use across
// different paths; per-path write races are reduced, not eliminated, by
// the collision-avoidance suffix in Put.
type Store interface {
	// Put writes data at desiredPath, or at a disambiguated path when the
	// desired one is occupied. It returns the path actually used; callers
	// must persist that path, not the desired one.
	Put(ctx context.Context, data []byte, desiredPath string) (string, error)

	// Get returns the object bytes at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Delete removes the object at path. The backend requires the current
	// revision token, so a failed read counts as a failed delete.
	Delete(ctx context.Context, path string) error

	// List returns the file paths directly under prefix. A missing prefix
	// yields zero results, not an error.
	List(ctx context.Context, prefix string) ([]string, error)

	// TestConnection reports whether the backend is reachable. It never
	// returns an error; failures of any kind read as false.
	TestConnection(ctx context.Context) bool
}

// StorageError is returned when a Put, Get or Delete exhausts its retry
// budget. It matches common.ErrStorageFailure under errors.Is and unwraps
// to the last underlying cause.
type StorageError struct {
	Op       string
	Path     string
	Attempts int
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s failed after %d attempts: %v", e.Op, e.Path, e.Attempts, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == common.ErrStorageFailure }
