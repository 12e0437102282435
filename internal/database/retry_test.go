package database

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// connRefused mimics a failed dial: a net.Error wrapped in the usual layers.
var connRefused = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func TestWithRetryRecoversAfterTransientFailures(t *testing.T) {
	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	attempts := 0
	err := withRetry(context.Background(), sleep, func(int) error {
		attempts++
		if attempts <= 2 {
			return connRefused
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry returned %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(slept) != 2 || slept[0] != 1*time.Second || slept[1] != 2*time.Second {
		t.Errorf("backoff sleeps = %v, want [1s 2s]", slept)
	}
}

func TestWithRetrySurfacesLastErrorAfterExhaustion(t *testing.T) {
	first := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	last := &pgconn.PgError{Code: "08003", Message: "connection does not exist"}

	attempts := 0
	err := withRetry(context.Background(), func(time.Duration) {}, func(int) error {
		attempts++
		if attempts < maxAttempts {
			return first
		}
		return last
	})
	if !errors.Is(err, last) {
		t.Fatalf("withRetry returned %v, want last error %v", err, last)
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
}

func TestWithRetryDoesNotRetryLogicErrors(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}

	attempts := 0
	err := withRetry(context.Background(), func(time.Duration) {
		t.Fatal("backoff sleep called for a non-transient error")
	}, func(int) error {
		attempts++
		return unique
	})
	if !errors.Is(err, unique) {
		t.Fatalf("withRetry returned %v, want %v", err, unique)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial refused", connRefused, true},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Errorf("isTransient(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := backoffDelay(i); got != w {
			t.Errorf("backoffDelay(%d) = %v, want %v", i, got, w)
		}
	}
}
