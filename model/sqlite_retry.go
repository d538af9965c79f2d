package model

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
)

const (
	sqliteBusyRetryAttempts  = 5
	sqliteBusyRetryBaseDelay = 20 * time.Millisecond
)

// withSQLiteBusyRetry retries op with linear backoff while SQLite reports a
// locked database. Other dialects run op exactly once.
func withSQLiteBusyRetry(ctx context.Context, op func() error) error {
	if !usingSQLite.Load() {
		return op()
	}

	var err error
	for attempt := 0; attempt <= sqliteBusyRetryAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * sqliteBusyRetryBaseDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Wrap(err, "context canceled while waiting for sqlite lock")
			case <-timer.C:
			}
		}

		if err = op(); err == nil || !isSQLiteBusy(err) {
			return err
		}
	}
	return errors.Wrap(err, "sqlite still busy after retries")
}

func isSQLiteBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "database is busy")
}
