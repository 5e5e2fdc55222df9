// Package notify delivers operator notifications. Delivery is best-effort:
// callers fire and forget, and failures are logged, never propagated into
// the pipeline.
package notify

import "context"

// Sink receives human-readable notifications such as batch-merge
// completion reports.
type Sink interface {
	Notify(ctx context.Context, subject, body string) error
}

// NopSink discards notifications. Used in tests and when SMTP is not
// configured.
type NopSink struct{}

func (NopSink) Notify(context.Context, string, string) error { return nil }
