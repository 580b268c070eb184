package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/benaskins/securestore/internal/keychain"
)

// Backend names accepted in the config file.
const (
	BackendAuto     = "auto"
	BackendKeychain = "keychain"
	BackendKeyring  = "keyring"
	BackendMemory   = "memory"
)

// Config holds persistent settings loaded from ~/.securestore/config.yaml.
type Config struct {
	Backend        string `yaml:"backend"`
	Namespace      string `yaml:"namespace"`
	Group          string `yaml:"group"`
	Synchronizable *bool  `yaml:"synchronizable"`
	Accessibility  string `yaml:"accessibility"`
	AuditLog       string `yaml:"audit_log"`
}

// Home returns the securestore home directory: ~/.securestore.
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".securestore")
}

// DefaultPath returns the default config file path: ~/.securestore/config.yaml.
func DefaultPath() string {
	dir := Home()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "", BackendAuto, BackendKeychain, BackendKeyring, BackendMemory:
		return nil
	}
	return fmt.Errorf("unknown backend %q", c.Backend)
}

// Scope returns the configured scope. Empty strings and a missing
// synchronizable key are treated as absent.
func (c *Config) Scope() keychain.Scope {
	var scope keychain.Scope
	if c.Namespace != "" {
		scope.Namespace = keychain.Some(c.Namespace)
	}
	if c.Group != "" {
		scope.Group = keychain.Some(c.Group)
	}
	scope.Sync = keychain.FromPtr(c.Synchronizable)
	return scope
}

// AccessibilityName returns the configured policy name, if any.
func (c *Config) AccessibilityName() keychain.Opt[string] {
	if c.Accessibility == "" {
		return keychain.None[string]()
	}
	return keychain.Some(c.Accessibility)
}

// AuditLogPath returns the configured audit log path, defaulting to
// ~/.securestore/audit.log. An empty result disables auditing.
func (c *Config) AuditLogPath() string {
	if c.AuditLog != "" {
		return c.AuditLog
	}
	dir := Home()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "audit.log")
}
