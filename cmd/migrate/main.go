package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JaimeStill/folio/internal/config"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "FOLIO_DB_DSN"

type action int

const (
	actionUp action = iota
	actionDown
	actionSteps
	actionVersion
	actionForce
)

type command struct {
	dsn    string
	action action
	n      int
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cmd, err := parseCommand(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			logger.Error("invalid arguments", "error", err)
		}
		os.Exit(2)
	}

	if err := run(cmd, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

// parseCommand reads exactly one of -up, -down, -steps, -version or -force.
func parseCommand(args []string, output io.Writer) (command, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		cmd     command
		up      = fs.Bool("up", false, "Run all up migrations")
		down    = fs.Bool("down", false, "Run all down migrations")
		steps   = fs.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = fs.Bool("version", false, "Print current migration version")
		force   = fs.Int("force", -1, "Force set version (use with caution)")
	)
	fs.StringVar(&cmd.dsn, "dsn", "", "Database URL (default from "+envDSN+" or the [database] config section)")
	fs.Usage = func() {
		fmt.Fprintln(output, "usage: migrate [-dsn <url>] -up|-down|-steps N|-version|-force N")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cmd, err
	}

	var chosen []string
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "up", "down", "version":
			if f.Value.String() == "true" {
				chosen = append(chosen, f.Name)
			}
		case "steps", "force":
			chosen = append(chosen, f.Name)
		}
	})

	switch len(chosen) {
	case 0:
		fs.Usage()
		return cmd, fmt.Errorf("no action given")
	case 1:
	default:
		return cmd, fmt.Errorf("conflicting actions: %s", strings.Join(chosen, ", "))
	}

	switch {
	case *up:
		cmd.action = actionUp
	case *down:
		cmd.action = actionDown
	case *version:
		cmd.action = actionVersion
	case chosen[0] == "force":
		if *force < 0 {
			return cmd, fmt.Errorf("force version must be non-negative")
		}
		cmd.action, cmd.n = actionForce, *force
	default:
		if *steps == 0 {
			return cmd, fmt.Errorf("steps must be non-zero")
		}
		cmd.action, cmd.n = actionSteps, *steps
	}
	return cmd, nil
}

func run(cmd command, logger *slog.Logger) error {
	url, err := resolveDSN(cmd.dsn)
	if err != nil {
		return fmt.Errorf("resolve database: %w", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{logger}

	switch cmd.action {
	case actionVersion:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info("current version", "version", v, "dirty", dirty)
		return nil
	case actionForce:
		if err := m.Force(cmd.n); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		logger.Info("version forced", "version", cmd.n)
		return nil
	case actionUp:
		err = m.Up()
	case actionDown:
		err = m.Down()
	case actionSteps:
		err = m.Steps(cmd.n)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no change")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("migrations complete")
	return nil
}

// resolveDSN prefers the -dsn flag, then FOLIO_DB_DSN, then the [database]
// section of the service configuration.
func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}
	db, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	return db.URL(), nil
}

// migrateLogger routes migrate's progress lines through slog.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}
