package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ItsSilva/lumilink/internal/ble"
)

// Duration wraps time.Duration so YAML values use Go syntax, e.g. 30s
// or 1500ms.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config holds all application configuration.
type Config struct {
	Device         DeviceConfig     `yaml:"device"`
	ScanTimeout    Duration         `yaml:"scan_timeout"`    // 0 = no deadline
	ConnectTimeout Duration         `yaml:"connect_timeout"` // 0 = no deadline
	Onboarding     OnboardingConfig `yaml:"onboarding"`
	LogLevel       string           `yaml:"log_level"`
}

// DeviceConfig holds device matching settings.
type DeviceConfig struct {
	NamePrefixes       []string `yaml:"name_prefixes"`
	ServiceUUID        string   `yaml:"service_uuid"`
	CharacteristicUUID string   `yaml:"characteristic_uuid"`
}

// OnboardingConfig holds onboarding screen settings.
type OnboardingConfig struct {
	AdvanceDelay Duration `yaml:"advance_delay"` // pause on success before moving on
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lumilink")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			NamePrefixes:       ble.DefaultNamePrefixes,
			ServiceUUID:        ble.ServiceUUID,
			CharacteristicUUID: ble.CharUUID,
		},
		Onboarding: OnboardingConfig{
			AdvanceDelay: Duration{1500 * time.Millisecond},
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, err := uuid.Parse(c.Device.ServiceUUID); err != nil {
		return fmt.Errorf("device.service_uuid %q: %w", c.Device.ServiceUUID, err)
	}

	if _, err := uuid.Parse(c.Device.CharacteristicUUID); err != nil {
		return fmt.Errorf("device.characteristic_uuid %q: %w", c.Device.CharacteristicUUID, err)
	}

	if c.ScanTimeout.Duration < 0 {
		return fmt.Errorf("scan_timeout must not be negative")
	}

	if c.ConnectTimeout.Duration < 0 {
		return fmt.Errorf("connect_timeout must not be negative")
	}

	if c.Onboarding.AdvanceDelay.Duration <= 0 {
		return fmt.Errorf("onboarding.advance_delay must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// WriteDefault writes a default config file if none exists yet. It
// returns the path written, or "" when a config is already present.
func WriteDefault() (string, error) {
	dir := DefaultConfigDir()
	if dir == "" {
		return "", fmt.Errorf("cannot determine config directory")
	}
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}

	header := "# lumilink configuration\n# Durations use Go syntax, e.g. 30s or 1500ms. Zero timeouts mean no deadline.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}

// ParseLogLevel maps a config log level to slog. Unknown values fall
// back to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
