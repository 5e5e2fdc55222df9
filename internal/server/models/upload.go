// Package models defines server-side data models persisted in the database.
package models

import "time"

// UploadStatus tracks the lifecycle of an upload. Transitions are monotone:
// pending -> processed or pending -> deleted, never back.
type UploadStatus string

const (
	StatusPending   UploadStatus = "pending"
	StatusProcessed UploadStatus = "processed"
	StatusDeleted   UploadStatus = "deleted"
)

// Upload describes one stored PDF awaiting (or past) a batch merge.
type Upload struct {
	ID int64
	// FileName is the generated storage filename (uuid + original extension).
	FileName string
	// OriginalFileName is user-supplied display text. Untrusted; never used
	// to build storage paths.
	OriginalFileName string
	// StoragePath is the path returned by the remote store on write. Set at
	// creation, immutable afterwards; it is the authoritative locator.
	StoragePath string
	// Batch is the verbatim batch label the upload belongs to.
	Batch string
	// Size is the upload's byte size.
	Size int64
	// UserID references the owning user. Ownership only, not lifetime.
	UserID string

	UploadedAt time.Time
	Status     UploadStatus
}
