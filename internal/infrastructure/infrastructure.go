// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, scanner) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JaimeStill/folio/internal/config"
	"github.com/JaimeStill/folio/pkg/database"
	"github.com/JaimeStill/folio/pkg/device"
	"github.com/JaimeStill/folio/pkg/device/pattern"
	"github.com/JaimeStill/folio/pkg/device/saned"
	"github.com/JaimeStill/folio/pkg/lifecycle"
	"github.com/JaimeStill/folio/pkg/storage"
)

const probeTimeout = 10 * time.Second

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, and the scanner backend.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Scanner   device.Backend
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	scanner, err := NewScanner(&cfg.Scanner, logger)
	if err != nil {
		return nil, fmt.Errorf("scanner init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Scanner:   scanner,
	}, nil
}

// NewScanner builds the device backend named by cfg.Backend.
func NewScanner(cfg *config.ScannerConfig, logger *slog.Logger) (device.Backend, error) {
	switch cfg.Backend {
	case config.BackendSaned:
		return saned.New(&cfg.Saned, logger), nil
	case config.BackendPattern:
		return pattern.Default(), nil
	}
	return nil, fmt.Errorf("unknown scanner backend %q", cfg.Backend)
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
// The scanner probe only logs: an unreachable scanner does not block startup.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	i.Lifecycle.OnStartup(i.probeScanner)
	return nil
}

func (i *Infrastructure) probeScanner() {
	logger := i.Logger.With("system", "scanner", "backend", i.Scanner.Name())

	ctx, cancel := context.WithTimeout(i.Lifecycle.Context(), probeTimeout)
	defer cancel()

	devices, err := i.Scanner.Devices(ctx)
	if err != nil {
		logger.Warn("scanner probe failed", "error", err)
		return
	}
	for _, d := range devices {
		logger.Info("scanner available", "device", d.Name, "vendor", d.Vendor, "model", d.Model)
	}
	if len(devices) == 0 {
		logger.Warn("no scanners found")
	}
}
