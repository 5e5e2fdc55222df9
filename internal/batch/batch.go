// Package batch handles batch label normalization. Batch labels are
// free-form strings ("Batch 1") stored verbatim in the ledger; only their
// normalized form is used as a storage path segment.
package batch

import "strings"

// Normalize converts a batch label into a storage-path-safe segment:
// lowercased, spaces replaced with hyphens, all other characters outside
// [a-z0-9-] dropped, hyphen runs collapsed, leading/trailing hyphens
// trimmed. Two labels that normalize identically share a storage prefix.
func Normalize(label string) string {
	s := strings.ToLower(label)
	s = strings.ReplaceAll(s, " ", "-")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
