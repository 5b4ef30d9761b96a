package config

import (
	"fmt"
	"os"
	"time"

	"github.com/JaimeStill/folio/pkg/device/saned"
	"github.com/JaimeStill/folio/pkg/scan"
)

const (
	BackendSaned   = "saned"
	BackendPattern = "pattern"

	EnvScannerBackend      = "FOLIO_SCANNER_BACKEND"
	EnvScannerJobRetention = "FOLIO_SCANNER_JOB_RETENTION"
)

var sanedEnv = &saned.Env{
	Address:     "FOLIO_SCANNER_ADDRESS",
	Username:    "FOLIO_SCANNER_USERNAME",
	DialTimeout: "FOLIO_SCANNER_DIAL_TIMEOUT",
	IOTimeout:   "FOLIO_SCANNER_IO_TIMEOUT",
}

var scanEnv = &scan.Env{
	Device:         "FOLIO_SCANNER_DEVICE",
	PreviewDPI:     "FOLIO_SCANNER_PREVIEW_DPI",
	PageDPI:        "FOLIO_SCANNER_PAGE_DPI",
	PreviewQuality: "FOLIO_SCANNER_PREVIEW_QUALITY",
	PageQuality:    "FOLIO_SCANNER_PAGE_QUALITY",
	ChunkSize:      "FOLIO_SCANNER_CHUNK_SIZE",
	BlockSize:      "FOLIO_SCANNER_BLOCK_SIZE",
	ProgressStep:   "FOLIO_SCANNER_PROGRESS_STEP",
	Progressive:    "FOLIO_SCANNER_PROGRESSIVE",
}

// ScannerConfig selects the device backend and holds scan parameters.
type ScannerConfig struct {
	Backend      string       `toml:"backend"`
	JobRetention string       `toml:"job_retention"`
	Saned        saned.Config `toml:"saned"`
	Scan         scan.Config  `toml:"scan"`
}

// JobRetentionDuration returns JobRetention as a time.Duration.
func (c *ScannerConfig) JobRetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.JobRetention)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation
// for the scanner config and its nested backend and scan configs.
func (c *ScannerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Saned.Finalize(sanedEnv); err != nil {
		return fmt.Errorf("saned: %w", err)
	}
	if err := c.Scan.Finalize(scanEnv); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *ScannerConfig) Merge(overlay *ScannerConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.JobRetention != "" {
		c.JobRetention = overlay.JobRetention
	}
	c.Saned.Merge(&overlay.Saned)
	c.Scan.Merge(&overlay.Scan)
}

func (c *ScannerConfig) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSaned
	}
	if c.JobRetention == "" {
		c.JobRetention = "30m"
	}
}

func (c *ScannerConfig) loadEnv() {
	if v := os.Getenv(EnvScannerBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvScannerJobRetention); v != "" {
		c.JobRetention = v
	}
}

func (c *ScannerConfig) validate() error {
	switch c.Backend {
	case BackendSaned, BackendPattern:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := time.ParseDuration(c.JobRetention); err != nil {
		return fmt.Errorf("invalid job_retention: %w", err)
	}
	return nil
}
