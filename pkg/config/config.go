package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the shipped config.yaml; a missing file or empty
// section still yields a usable server.
const (
	DefaultMaxTitleLength       = 32
	DefaultMaxDescriptionLength = 200
	DefaultMaxPerAuthor         = 5
	DefaultPageSize             = 45
	DefaultSort                 = "recent"
	DefaultStoragePath          = "./data/suggestions.yml"
	DefaultSessionTimeout       = 5 * time.Minute
	DefaultBrowseIdle           = 10 * time.Minute
	DefaultSweepCron            = "*/5 * * * *"
)

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// ApplyDefaults fills zero-valued policy fields with the defaults above.
func (c *Config) ApplyDefaults() {
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Suggestions.MaxTitleLength <= 0 {
		c.Suggestions.MaxTitleLength = DefaultMaxTitleLength
	}
	if c.Suggestions.MaxDescriptionLength <= 0 {
		c.Suggestions.MaxDescriptionLength = DefaultMaxDescriptionLength
	}
	// 0 means unset here; operators use -1 for no quota
	if c.Suggestions.MaxPerAuthor == 0 {
		c.Suggestions.MaxPerAuthor = DefaultMaxPerAuthor
	}
	if c.Suggestions.PageSize <= 0 {
		c.Suggestions.PageSize = DefaultPageSize
	}
	if c.Suggestions.DefaultSort == "" {
		c.Suggestions.DefaultSort = DefaultSort
	}
	if c.Sessions.Timeout.Duration() <= 0 {
		c.Sessions.Timeout = Duration(DefaultSessionTimeout)
	}
	if len(c.Sessions.CancelWords) == 0 {
		c.Sessions.CancelWords = []string{"cancel", "exit"}
	}
	if c.Sessions.SweepCron == "" {
		c.Sessions.SweepCron = DefaultSweepCron
	}
	if c.Sessions.BrowseIdle.Duration() <= 0 {
		c.Sessions.BrowseIdle = Duration(DefaultBrowseIdle)
	}
	if len(c.Security.AdminRoles) == 0 {
		c.Security.AdminRoles = []string{"admin"}
	}
}

// Quota translates the configured per-author limit into the store's
// convention, where 0 means unlimited.
func (c *Config) Quota() int {
	if c.Suggestions.MaxPerAuthor < 0 {
		return 0
	}
	return c.Suggestions.MaxPerAuthor
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and SUGGESTBOX_CONFIG when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("SUGGESTBOX_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
