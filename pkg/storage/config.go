package storage

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
)

// containerPattern follows Azure naming: 3-63 lowercase letters, digits
// and single hyphens, starting and ending with a letter or digit.
var containerPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9]|-[a-z0-9])+$`)

// Config holds blob storage connection parameters. ConnectionString takes
// precedence; otherwise AccountURL is used with the ambient Azure identity.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// Env names the environment variables that override Config.
type Env struct {
	ContainerName    string
	ConnectionString string
	AccountURL       string
}

// Finalize applies defaults, environment overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = "documents"
	}
	if env != nil {
		override(&c.ContainerName, env.ContainerName)
		override(&c.ConnectionString, env.ConnectionString)
		override(&c.AccountURL, env.AccountURL)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	merge(&c.ContainerName, overlay.ContainerName)
	merge(&c.ConnectionString, overlay.ConnectionString)
	merge(&c.AccountURL, overlay.AccountURL)
}

func (c *Config) validate() error {
	if n := len(c.ContainerName); n < 3 || n > 63 || !containerPattern.MatchString(c.ContainerName) {
		return fmt.Errorf("invalid container_name %q", c.ContainerName)
	}
	if c.ConnectionString != "" {
		return nil
	}
	if c.AccountURL == "" {
		return fmt.Errorf("connection_string or account_url required")
	}
	if u, err := url.Parse(c.AccountURL); err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid account_url %q: must be an https URL", c.AccountURL)
	}
	return nil
}

func override(dst *string, name string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
