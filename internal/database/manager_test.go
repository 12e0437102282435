package database

import (
	"testing"
)

func TestMetricsBeforeInitialization(t *testing.T) {
	m := NewManager(Config{URL: "postgres://localhost:5432/agent_catalog"}, nil)

	got := m.Metrics()
	if got.PoolStatus != PoolStatusNotInitialized {
		t.Errorf("PoolStatus = %q, want %q", got.PoolStatus, PoolStatusNotInitialized)
	}
	if got.Stats != nil {
		t.Errorf("Stats = %+v, want nil before initialization", got.Stats)
	}
}

func TestCleanupSafeWhenNotInitialized(t *testing.T) {
	m := NewManager(Config{URL: "postgres://localhost:5432/agent_catalog"}, nil)

	// Must not panic, repeatedly.
	m.Cleanup()
	m.Cleanup()

	if got := m.Metrics().PoolStatus; got != PoolStatusNotInitialized {
		t.Errorf("PoolStatus after cleanup = %q, want %q", got, PoolStatusNotInitialized)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{URL: "postgres://localhost/db"}.withDefaults()
	if cfg.MinConns != 2 || cfg.MaxConns != 10 {
		t.Errorf("pool bounds = %d/%d, want 2/10", cfg.MinConns, cfg.MaxConns)
	}
	if cfg.ConnectTimeout.Seconds() != 30 || cfg.StatementTimeout.Seconds() != 60 {
		t.Errorf("timeouts = %v/%v, want 30s/60s", cfg.ConnectTimeout, cfg.StatementTimeout)
	}
}
