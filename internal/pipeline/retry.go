package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/dgallion1/corpusgest/internal/pathstore"
)

// IsRetryable checks if a store error is worth retrying: pathstore rate
// limits and 5xx, postgres errors raised before the server saw the query,
// and sqlite lock contention.
func IsRetryable(err error) bool {
	var retryErr *pathstore.RetryableError
	if errors.As(err, &retryErr) {
		return true
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
