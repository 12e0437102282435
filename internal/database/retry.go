package database

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// maxAttempts bounds both pool initialization and per-statement retries.
const maxAttempts = 3

// backoffDelay returns the exponential backoff delay after a failed attempt:
// 1s after the first, 2s after the second.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// isTransient reports whether err looks like a connectivity failure worth
// retrying. Constraint violations and other server-side errors are not
// transient: they must surface to the caller on the first attempt.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// Class 08: connection exceptions, plus admin/crash shutdown.
		case "08000", "08003", "08006", "57P01", "57P02", "57P03":
			return true
		}
	}
	return false
}

// withRetry runs op up to maxAttempts times. Transient failures sleep the
// backoff delay and retry; any other error aborts immediately. After
// exhausting all attempts the last transient error is returned.
func withRetry(ctx context.Context, sleep func(time.Duration), op func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := op(attempt)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			sleep(backoffDelay(attempt))
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
