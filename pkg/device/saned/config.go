package saned

import (
	"fmt"
	"net"
	"os"
	"time"
)

// Config holds saned connection parameters.
type Config struct {
	Address     string `toml:"address"`
	Username    string `toml:"username"`
	DialTimeout string `toml:"dial_timeout"`
	IOTimeout   string `toml:"io_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Address     string
	Username    string
	DialTimeout string
	IOTimeout   string
}

// DialTimeoutDuration returns DialTimeout as a time.Duration.
func (c *Config) DialTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
	return d
}

// IOTimeoutDuration returns IOTimeout as a time.Duration. Zero disables
// per-call deadlines.
func (c *Config) IOTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IOTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Address != "" {
		c.Address = overlay.Address
	}
	if overlay.Username != "" {
		c.Username = overlay.Username
	}
	if overlay.DialTimeout != "" {
		c.DialTimeout = overlay.DialTimeout
	}
	if overlay.IOTimeout != "" {
		c.IOTimeout = overlay.IOTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Address == "" {
		c.Address = "localhost:6566"
	}
	if c.Username == "" {
		c.Username = "folio"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.IOTimeout == "" {
		c.IOTimeout = "2m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Address != "" {
		if v := os.Getenv(env.Address); v != "" {
			c.Address = v
		}
	}
	if env.Username != "" {
		if v := os.Getenv(env.Username); v != "" {
			c.Username = v
		}
	}
	if env.DialTimeout != "" {
		if v := os.Getenv(env.DialTimeout); v != "" {
			c.DialTimeout = v
		}
	}
	if env.IOTimeout != "" {
		if v := os.Getenv(env.IOTimeout); v != "" {
			c.IOTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.IOTimeout); err != nil {
		return fmt.Errorf("invalid io_timeout: %w", err)
	}
	return nil
}
