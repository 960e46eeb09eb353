package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Organization describes the field-service business this instance serves.
type Organization struct {
	ID              string `toml:"id"`
	BusinessName    string `toml:"business_name"`
	IndustryCode    string `toml:"industry_code"`
	ContactPhone    string `toml:"contact_phone"`
	TechnicianPhone string `toml:"technician_phone"`
	DefaultLanguage string `toml:"default_language"`
}

// Thresholds carries the urgency decision boundaries.
//
// Escalation (0.7) drives the notification workflow and is deliberately
// independent from the emergency classification boundary (0.8), which lives
// as a named constant in the urgency package.
type Thresholds struct {
	Escalation float64 `toml:"escalation"`
}

// Channel contains settings for the outbound notification provider.
type Channel struct {
	Endpoint              string `toml:"endpoint"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Webhook contains settings for workflow webhook callback steps.
type Webhook struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Dispatch contains workflow execution settings.
type Dispatch struct {
	MaxRetries           int `toml:"max_retries"`
	FollowUpDelaySeconds int `toml:"follow_up_delay_seconds"`
}

// Storage contains persistence settings.
type Storage struct {
	DataDir string `toml:"data_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Audit contains settings for the best-effort assessment audit channel.
type Audit struct {
	QueueSize int `toml:"queue_size"`
}

// Config encapsulates all configuration values for fieldline.
type Config struct {
	Organization Organization `toml:"organization"`
	Thresholds   Thresholds   `toml:"thresholds"`
	Channel      Channel      `toml:"channel"`
	Webhook      Webhook      `toml:"webhook"`
	Dispatch     Dispatch     `toml:"dispatch"`
	Storage      Storage      `toml:"storage"`
	Logging      Logging      `toml:"logging"`
	Audit        Audit        `toml:"audit"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fieldline/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has the data directory expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fieldline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data directory used by the store and logs.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return errors.New("storage.data_dir is empty")
	}
	if err := os.MkdirAll(c.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Storage.DataDir, err)
	}
	return nil
}

func (c *Config) normalize() error {
	expanded, err := expandPath(c.Storage.DataDir)
	if err != nil {
		return err
	}
	c.Storage.DataDir = expanded
	c.Organization.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.Organization.DefaultLanguage))
	c.Organization.IndustryCode = strings.ToLower(strings.TrimSpace(c.Organization.IndustryCode))
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
