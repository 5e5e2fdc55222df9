// Package common defines shared sentinel errors used across printbatch
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Policy violations on delete.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")

	// Upload validation errors. Never retried.
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")

	// ErrEmptyBatch is returned by a merge when the batch has no pending
	// uploads at snapshot time.
	ErrEmptyBatch = errors.New("empty batch")

	// ErrConfiguration marks missing or placeholder remote-store settings.
	// It is raised before any retry loop; retrying cannot fix it.
	ErrConfiguration = errors.New("configuration error")

	// ErrStorageFailure marks a remote-store operation that exhausted its
	// retry budget. The wrapping StorageError carries the operation name
	// and the last underlying cause.
	ErrStorageFailure = errors.New("storage failure")
)
