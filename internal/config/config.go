// Package config handles the configuration directory, file paths and
// settings for ytbatch.
package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application directory name.
	AppName = "ytbatch"

	// SettingsFile is the settings filename.
	SettingsFile = "config.toml"

	// EnvFile is an optional dotenv file holding secrets.
	EnvFile = ".env"

	// TokenFile is the cached OAuth token filename.
	TokenFile = "token.json"

	// JournalFile is the default journal database filename.
	JournalFile = "journal.db"

	// DefaultTasksFile is the batch file used when --tasks is not given.
	DefaultTasksFile = "tasks.json"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings is populated by LoadSettings. Nil until loaded.
	Settings *Settings
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/ytbatch or $HOME/.config/ytbatch.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to the settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// EnvPath returns the path to the optional dotenv file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// TokenPath returns the path to the cached OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// JournalPath returns the journal database path. A journal_path setting
// takes precedence over the config directory default.
func (c *Config) JournalPath() string {
	if c.Settings != nil && c.Settings.JournalPath != "" {
		return c.Settings.JournalPath
	}
	return filepath.Join(c.Dir, JournalFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSettings checks if the settings file exists.
func (c *Config) HasSettings() bool {
	_, err := os.Stat(c.SettingsPath())
	return err == nil
}

// LoadSettings reads the settings file and environment into c.Settings.
func (c *Config) LoadSettings() error {
	s, err := LoadSettings(c.SettingsPath(), c.EnvPath())
	if err != nil {
		return err
	}
	c.Settings = s
	return nil
}
