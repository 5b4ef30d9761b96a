package scan

import (
	"fmt"
	"maps"
	"os"
	"strconv"

	"github.com/JaimeStill/folio/pkg/formatting"
	"github.com/JaimeStill/folio/pkg/jpegenc"
	"github.com/JaimeStill/folio/pkg/negotiate"
)

// Config holds scan acquisition and encoding parameters.
type Config struct {
	Device         string                       `toml:"device"`
	PreviewDPI     int                          `toml:"preview_dpi"`
	PageDPI        int                          `toml:"page_dpi"`
	PreviewQuality int                          `toml:"preview_quality"`
	PageQuality    int                          `toml:"page_quality"`
	ChunkSize      string                       `toml:"chunk_size"`
	BlockSize      string                       `toml:"block_size"`
	ProgressStep   int                          `toml:"progress_step"`
	Progressive    bool                         `toml:"progressive"`
	CommonOptions  map[string]string            `toml:"common_options"`
	Devices        map[string]map[string]string `toml:"devices"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Device         string
	PreviewDPI     string
	PageDPI        string
	PreviewQuality string
	PageQuality    string
	ChunkSize      string
	BlockSize      string
	ProgressStep   string
	Progressive    string
}

// ChunkSizeBytes returns ChunkSize as a byte count.
func (c *Config) ChunkSizeBytes() int {
	n, err := formatting.ParseBytes(c.ChunkSize)
	if err != nil {
		return 128 * 1024
	}
	return int(n)
}

// BlockSizeBytes returns BlockSize as a byte count.
func (c *Config) BlockSizeBytes() int {
	n, err := formatting.ParseBytes(c.BlockSize)
	if err != nil {
		return jpegenc.DefaultBlockSize
	}
	return int(n)
}

// Resolution returns the configured dpi for mode.
func (c *Config) Resolution(mode Mode) int {
	if mode == ModePreview {
		return c.PreviewDPI
	}
	return c.PageDPI
}

// Quality returns the configured JPEG quality for mode.
func (c *Config) Quality(mode Mode) int {
	if mode == ModePreview {
		return c.PreviewQuality
	}
	return c.PageQuality
}

// Overrides returns the common option overrides with the named device's
// overrides layered on top.
func (c *Config) Overrides(deviceName string) map[string]string {
	return negotiate.MergeOverrides(c.CommonOptions, c.Devices[deviceName])
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Option maps merge by key.
func (c *Config) Merge(overlay *Config) {
	if overlay.Device != "" {
		c.Device = overlay.Device
	}
	if overlay.PreviewDPI != 0 {
		c.PreviewDPI = overlay.PreviewDPI
	}
	if overlay.PageDPI != 0 {
		c.PageDPI = overlay.PageDPI
	}
	if overlay.PreviewQuality != 0 {
		c.PreviewQuality = overlay.PreviewQuality
	}
	if overlay.PageQuality != 0 {
		c.PageQuality = overlay.PageQuality
	}
	if overlay.ChunkSize != "" {
		c.ChunkSize = overlay.ChunkSize
	}
	if overlay.BlockSize != "" {
		c.BlockSize = overlay.BlockSize
	}
	if overlay.ProgressStep != 0 {
		c.ProgressStep = overlay.ProgressStep
	}
	if overlay.Progressive {
		c.Progressive = true
	}
	if overlay.CommonOptions != nil {
		if c.CommonOptions == nil {
			c.CommonOptions = make(map[string]string)
		}
		maps.Copy(c.CommonOptions, overlay.CommonOptions)
	}
	for name, opts := range overlay.Devices {
		if c.Devices == nil {
			c.Devices = make(map[string]map[string]string)
		}
		if c.Devices[name] == nil {
			c.Devices[name] = make(map[string]string)
		}
		maps.Copy(c.Devices[name], opts)
	}
}

func (c *Config) loadDefaults() {
	if c.PreviewDPI == 0 {
		c.PreviewDPI = 75
	}
	if c.PageDPI == 0 {
		c.PageDPI = 300
	}
	if c.PreviewQuality == 0 {
		c.PreviewQuality = 50
	}
	if c.PageQuality == 0 {
		c.PageQuality = 85
	}
	if c.ChunkSize == "" {
		c.ChunkSize = "128KB"
	}
	if c.BlockSize == "" {
		c.BlockSize = "16KB"
	}
	if c.ProgressStep == 0 {
		c.ProgressStep = 5
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Device != "" {
		if v := os.Getenv(env.Device); v != "" {
			c.Device = v
		}
	}
	setInt := func(name string, dst *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setInt(env.PreviewDPI, &c.PreviewDPI)
	setInt(env.PageDPI, &c.PageDPI)
	setInt(env.PreviewQuality, &c.PreviewQuality)
	setInt(env.PageQuality, &c.PageQuality)
	setInt(env.ProgressStep, &c.ProgressStep)

	if env.ChunkSize != "" {
		if v := os.Getenv(env.ChunkSize); v != "" {
			c.ChunkSize = v
		}
	}
	if env.BlockSize != "" {
		if v := os.Getenv(env.BlockSize); v != "" {
			c.BlockSize = v
		}
	}
	if env.Progressive != "" {
		if v := os.Getenv(env.Progressive); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Progressive = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.PreviewDPI <= 0 {
		return fmt.Errorf("invalid preview_dpi: %d", c.PreviewDPI)
	}
	if c.PageDPI <= 0 {
		return fmt.Errorf("invalid page_dpi: %d", c.PageDPI)
	}
	for name, q := range map[string]int{"preview_quality": c.PreviewQuality, "page_quality": c.PageQuality} {
		if q < jpegenc.MinQuality || q > jpegenc.MaxQuality {
			return fmt.Errorf("invalid %s: %d", name, q)
		}
	}
	if n, err := formatting.ParseBytes(c.ChunkSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid chunk_size: %q", c.ChunkSize)
	}
	if n, err := formatting.ParseBytes(c.BlockSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid block_size: %q", c.BlockSize)
	}
	if c.ProgressStep < 1 || c.ProgressStep > 100 {
		return fmt.Errorf("invalid progress_step: %d", c.ProgressStep)
	}
	return nil
}
