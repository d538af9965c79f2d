package model

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

func useSQLiteFlag(t *testing.T, on bool) {
	t.Helper()
	prev := usingSQLite.Load()
	usingSQLite.Store(on)
	t.Cleanup(func() { usingSQLite.Store(prev) })
}

func TestWithSQLiteBusyRetry(t *testing.T) {
	t.Run("eventually succeeds", func(t *testing.T) {
		useSQLiteFlag(t, true)
		attempts := 0
		err := withSQLiteBusyRetry(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
	})

	t.Run("non busy errors return immediately", func(t *testing.T) {
		useSQLiteFlag(t, true)
		attempts := 0
		err := withSQLiteBusyRetry(context.Background(), func() error {
			attempts++
			return errors.New("no such table: invocation_logs")
		})
		require.ErrorContains(t, err, "no such table")
		require.Equal(t, 1, attempts)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		useSQLiteFlag(t, true)
		attempts := 0
		err := withSQLiteBusyRetry(context.Background(), func() error {
			attempts++
			return errors.New("database is busy")
		})
		require.ErrorContains(t, err, "still busy")
		require.Equal(t, sqliteBusyRetryAttempts+1, attempts)
	})

	t.Run("context canceled", func(t *testing.T) {
		useSQLiteFlag(t, true)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(sqliteBusyRetryBaseDelay / 2)
			cancel()
		}()
		err := withSQLiteBusyRetry(ctx, func() error {
			return errors.New("database is locked")
		})
		require.ErrorContains(t, err, "context canceled")
	})

	t.Run("other dialects run once", func(t *testing.T) {
		useSQLiteFlag(t, false)
		attempts := 0
		err := withSQLiteBusyRetry(context.Background(), func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.Error(t, err)
		require.Equal(t, 1, attempts)
	})
}
