// Package database owns the connection pool and wraps every statement in a
// retried, single-statement transaction.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config bounds the pool and its timeouts.
type Config struct {
	URL              string
	MinConns         int32
	MaxConns         int32
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.StatementTimeout == 0 {
		c.StatementTimeout = 60 * time.Second
	}
	return c
}

// Manager owns the pgx pool. It initializes the schema on first use, retries
// transient connectivity failures with exponential backoff, and tears the
// pool down between attempts so a retry starts from a clean slate.
type Manager struct {
	mu   sync.Mutex
	cfg  Config
	pool *pgxpool.Pool
	log  *slog.Logger

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewManager returns an uninitialized Manager. The pool is created lazily on
// the first statement, or eagerly via Initialize.
func NewManager(cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{cfg: cfg.withDefaults(), log: log, sleep: time.Sleep}
}

// Initialize establishes the pool and ensures all tables and constraints
// exist. Idempotent and safe to call repeatedly. Transient connectivity
// failures are retried up to three times with exponential backoff; the last
// error surfaces after exhaustion.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked(ctx)
}

func (m *Manager) initializeLocked(ctx context.Context) error {
	if m.pool != nil {
		return nil
	}
	return withRetry(ctx, m.sleep, func(attempt int) error {
		if err := m.attemptInit(ctx); err != nil {
			m.log.Warn("pool initialization attempt failed", "attempt", attempt+1, "error", err)
			m.teardownLocked()
			return err
		}
		return nil
	})
}

func (m *Manager) attemptInit(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(m.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MinConns = m.cfg.MinConns
	poolCfg.MaxConns = m.cfg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = m.cfg.ConnectTimeout
	poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", m.cfg.StatementTimeout.Milliseconds())

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	m.pool = pool

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	for _, ddl := range schemaStatements {
		if _, err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	m.log.Info("connection pool and schema ready",
		"min_conns", m.cfg.MinConns, "max_conns", m.cfg.MaxConns)
	return nil
}

// Cleanup closes the pool and clears internal state. Safe to call when the
// manager was never initialized.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.teardownLocked()
		m.log.Info("connection pool cleaned up")
	}
}

func (m *Manager) teardownLocked() {
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
	}
}

// PoolStats is the snapshot reported while the pool is active.
type PoolStats struct {
	MinSize  int32 `json:"pool_min_size"`
	MaxSize  int32 `json:"pool_max_size"`
	FreeSize int32 `json:"pool_free_size"`
}

// Metrics is the pool health snapshot. Never errors.
type Metrics struct {
	PoolStatus string     `json:"pool_status"`
	Stats      *PoolStats `json:"metrics"`
}

// Pool status values.
const (
	PoolStatusNotInitialized = "not_initialized"
	PoolStatusActive         = "active"
)

// Metrics reports pool status plus configured bounds and the current number
// of idle connections.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()
	if pool == nil {
		return Metrics{PoolStatus: PoolStatusNotInitialized}
	}
	stat := pool.Stat()
	return Metrics{
		PoolStatus: PoolStatusActive,
		Stats: &PoolStats{
			MinSize:  m.cfg.MinConns,
			MaxSize:  m.cfg.MaxConns,
			FreeSize: stat.IdleConns(),
		},
	}
}

// acquirePool lazily initializes and returns the current pool.
func (m *Manager) acquirePool(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool == nil {
		if err := m.initializeLocked(ctx); err != nil {
			return nil, err
		}
	}
	return m.pool, nil
}

// teardownIf discards the pool only if it is still the one the failed call
// used; a concurrent caller may already have rebuilt it.
func (m *Manager) teardownIf(pool *pgxpool.Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool == pool {
		m.teardownLocked()
	}
}

// withTx runs fn inside its own transaction, retrying transient connectivity
// failures with the initialization backoff. Every other error (unique
// violations included) propagates on the first attempt.
func (m *Manager) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return withRetry(ctx, m.sleep, func(attempt int) error {
		pool, err := m.acquirePool(ctx)
		if err != nil {
			return err
		}
		err = pgx.BeginFunc(ctx, pool, fn)
		if err != nil && isTransient(err) {
			m.log.Warn("statement attempt failed", "attempt", attempt+1, "error", err)
			m.teardownIf(pool)
		}
		return err
	})
}

// Exec runs a single statement in its own transaction.
func (m *Manager) Exec(ctx context.Context, sql string, args ...any) error {
	return m.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql, args...)
		return err
	})
}

// Query runs a single query in its own transaction and hands the rows to
// scan while the transaction is still open.
func (m *Manager) Query(ctx context.Context, scan func(rows pgx.Rows) error, sql string, args ...any) error {
	return m.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if err := scan(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}

// QueryRow runs a single-row query in its own transaction. The scan callback
// receives the row; pgx.ErrNoRows propagates unchanged.
func (m *Manager) QueryRow(ctx context.Context, scan func(row pgx.Row) error, sql string, args ...any) error {
	return m.withTx(ctx, func(tx pgx.Tx) error {
		return scan(tx.QueryRow(ctx, sql, args...))
	})
}

// Begin opens an explicit multi-statement transaction. Used only where two
// writes must commit atomically (documentation completion); no retry applies.
func (m *Manager) Begin(ctx context.Context) (pgx.Tx, error) {
	pool, err := m.acquirePool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Begin(ctx)
}
