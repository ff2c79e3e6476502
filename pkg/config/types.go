package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Security    SecurityConfig    `yaml:"security"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig selects the durable backend for the suggestion document.
type StorageConfig struct {
	// Backend is "yaml" (default) or "pebble".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// SuggestionsConfig holds the content and quota policy.
type SuggestionsConfig struct {
	MaxTitleLength       int    `yaml:"max_title_length"`
	MaxDescriptionLength int    `yaml:"max_description_length"`
	MaxPerAuthor         int    `yaml:"max_per_author"`
	AllowSelfVote        bool   `yaml:"allow_self_vote"`
	DefaultSort          string `yaml:"default_sort"`
	PageSize             int    `yaml:"page_size"`
}

// SessionsConfig holds interaction and browse session policy.
type SessionsConfig struct {
	Timeout     Duration `yaml:"timeout"`
	CancelWords []string `yaml:"cancel_words"`
	SweepCron   string   `yaml:"sweep_cron"`
	BrowseIdle  Duration `yaml:"browse_idle"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	// AdminRoles lists role names treated as staff.
	AdminRoles []string `yaml:"admin_roles"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"` // text|json
	AuditDir string `yaml:"audit_dir"`
}

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "5m" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
