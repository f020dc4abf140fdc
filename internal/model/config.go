package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Storage backend names.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// StorageConfig selects where the task blob lives.
type StorageConfig struct {
	// Backend is one of "sqlite", "bolt" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the database file. Ignored by the memory backend.
	Path string `mapstructure:"path" yaml:"path"`
}

// ReminderConfig controls the pre-slot reminder.
type ReminderConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	LeadMinutes int  `mapstructure:"lead_minutes" yaml:"lead_minutes"`

	// WebhookURL, when set, also pushes reminders to a remote endpoint
	// (ntfy, gotify and similar). The bearer token is kept in the keyring.
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	Path     string `mapstructure:"path" yaml:"path"`
}

// MailConfig describes where `docket mail` delivers the exported plan.
type MailConfig struct {
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
	Username string `mapstructure:"username" yaml:"username"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
	From     string `mapstructure:"from" yaml:"from"`
	To       string `mapstructure:"to" yaml:"to"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
}

// configDir returns ~/.config/daily-docket, or "." when the home directory
// cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "daily-docket")
}

// stateDir returns ~/.local/state/daily-docket, or "." when the home
// directory cannot be resolved.
func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "daily-docket")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/daily-docket/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    filepath.Join(stateDir(), "docket.db"),
		},
		Reminder: ReminderConfig{
			Enabled:     true,
			LeadMinutes: 5,
		},
		Display: DisplayConfig{
			Theme: "light",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			Path:     filepath.Join(stateDir(), "docket.log"),
		},
		Mail: MailConfig{
			IMAPPort: "993",
			TLS:      true,
			Mailbox:  "Drafts",
		},
	}
}

// newViper returns a viper instance with defaults and DOCKET_ environment
// overrides applied.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := DefaultAppConfig()
	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("reminder.enabled", def.Reminder.Enabled)
	v.SetDefault("reminder.lead_minutes", def.Reminder.LeadMinutes)
	v.SetDefault("reminder.webhook_url", "")
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.encoding", def.Log.Encoding)
	v.SetDefault("log.path", def.Log.Path)
	v.SetDefault("mail.imap_host", "")
	v.SetDefault("mail.imap_port", def.Mail.IMAPPort)
	v.SetDefault("mail.tls", def.Mail.TLS)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.mailbox", def.Mail.Mailbox)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", "")

	v.SetEnvPrefix("DOCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Storage.Backend {
	case BackendSQLite, BackendBolt, BackendMemory:
	default:
		return nil, fmt.Errorf("config %s: unknown storage backend %q", path, cfg.Storage.Backend)
	}
	if cfg.Reminder.LeadMinutes < 0 {
		cfg.Reminder.LeadMinutes = 0
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("reminder", cfg.Reminder)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("mail", cfg.Mail)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
