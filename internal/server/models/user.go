package models

import "time"

// User is an opaque ownership token for uploads. Registration, passwords
// and sessions live in the external identity component; this model only
// carries what the ledger needs for lookups and ownership checks.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}
