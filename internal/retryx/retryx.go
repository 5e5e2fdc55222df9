// Package retryx provides the backoff shape used by remote calls: a fixed
// attempt budget with linearly increasing delay.
package retryx

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// Linear returns a backoff that sleeps base*1, base*2, base*3, ... between
// attempts. Combine with retry.WithMaxRetries to bound the budget.
func Linear(base time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}
