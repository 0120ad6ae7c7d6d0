package throwdb

import (
	"strings"
	"time"

	"github.com/dartsense/dartsense/internal/timeutil"
)

// clock is swapped for a mock in tests so backoff assertions run instantly.
var clock timeutil.Clock = timeutil.RealClock{}

// isSQLiteBusy reports whether the error is a SQLITE_BUSY / locked-database
// condition worth retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with exponential backoff while the database
// reports busy. Non-busy errors fail immediately.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 5
	delay := 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			clock.Sleep(delay)
			delay *= 2
		}
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
	}
	return err
}
