package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `mapstructure:"path" yaml:"path"`
}

// DispatchConfig controls the eligibility rule used when fanning out
// notifications at project creation.
type DispatchConfig struct {
	// NotifyAdmins includes admin employees in the eligible set.
	NotifyAdmins bool `mapstructure:"notify_admins" yaml:"notify_admins"`

	// Role restricts eligibility to employees with this role when set.
	Role string `mapstructure:"role" yaml:"role"`
}

// MailConfig controls outbound offer emails.
type MailConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// From is the sender address on rendered messages.
	From string `mapstructure:"from" yaml:"from"`

	// Relay is the SMTP relay host:port used for delivery.
	Relay string `mapstructure:"relay" yaml:"relay"`
}

// NATSConfig controls the optional external event sink.
type NATSConfig struct {
	// URL is the NATS server URL; empty disables the sink.
	URL string `mapstructure:"url" yaml:"url"`

	// SubjectPrefix prefixes published subjects, e.g.
	// "devtracker.events" yields "devtracker.events.project_updated".
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
}

// AppConfig is the top-level service configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/devtracker/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "devtracker", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "data/devtracker.db"},
		LogLevel: "info",
		Dispatch: DispatchConfig{NotifyAdmins: false},
		Mail:     MailConfig{Enabled: false, From: "devtracker@localhost"},
		NATS:     NATSConfig{SubjectPrefix: "devtracker.events"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", "data/devtracker.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("dispatch.notify_admins", false)
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.from", "devtracker@localhost")
	v.SetDefault("nats.subject_prefix", "devtracker.events")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
