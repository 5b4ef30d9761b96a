package database_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/JaimeStill/folio/pkg/database"
)

func newSystem(t *testing.T, cfg database.Config) database.System {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { sys.Connection().Close() })
	return sys
}

func TestNewSetsPoolParams(t *testing.T) {
	sys := newSystem(t, database.Config{
		Name:         "folio",
		User:         "folio",
		MaxOpenConns: 42,
		MaxIdleConns: 7,
	})

	if got := sys.Connection().Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
}

func TestHealthUnreachable(t *testing.T) {
	sys := newSystem(t, database.Config{
		Host:        "127.0.0.1",
		Port:        1,
		Name:        "folio",
		User:        "folio",
		ConnTimeout: "1s",
	})

	err := sys.Health(context.Background())
	if !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Health() = %v, want ErrNotReady", err)
	}
}
