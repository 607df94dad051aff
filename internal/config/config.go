package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultURL           = "https://are-we-there-yet.hackclub.com/"
	DefaultDelaySeconds  = 10
	DefaultWindowMinutes = 10
	DefaultTimeout       = 30
	DefaultProgressClass = "progress-text"
)

// Config holds every setting of a monitor run.
type Config struct {
	URL            string `json:"url" yaml:"url"`
	DelaySeconds   int    `json:"delay_seconds" yaml:"delay_seconds"`
	WindowMinutes  int    `json:"window_minutes" yaml:"window_minutes"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	Database       string `json:"database" yaml:"database"`
	ProgressClass  string `json:"progress_class" yaml:"progress_class"`
	MetricsAddr    string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
	UserAgent      string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// ValidationResult represents the outcome of a validation pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		URL:            DefaultURL,
		DelaySeconds:   DefaultDelaySeconds,
		WindowMinutes:  DefaultWindowMinutes,
		TimeoutSeconds: DefaultTimeout,
		Database:       DefaultDatabasePath(),
		ProgressClass:  DefaultProgressClass,
	}
}

// DefaultDatabasePath is ~/.pacewatch/progress.db, or ./progress.db
// when the home directory is unknown.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "progress.db"
	}
	return filepath.Join(home, ".pacewatch", "progress.db")
}

// Load reads a config file (JSON or YAML) on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to unmarshal JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format: %s (use .json or .yaml)", ext)
	}

	return cfg, nil
}

// Save writes the config as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the config for values the monitor cannot run with.
func (c Config) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}

	if c.URL == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "URL is required")
	} else if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("URL %q must be an absolute http(s) URL", c.URL))
	}

	if c.DelaySeconds <= 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "Polling delay must be at least 1 second")
	} else if c.DelaySeconds < 5 {
		res.Warnings = append(res.Warnings, "Polling delay under 5 seconds may hammer the status page")
	}

	if c.WindowMinutes <= 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "Trailing window must be at least 1 minute")
	} else if c.WindowMinutes*60 < 2*c.DelaySeconds {
		res.Warnings = append(res.Warnings, "Trailing window holds fewer than two polls; recent pace will stay N/A")
	}

	if c.TimeoutSeconds < 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "Timeout cannot be negative")
	}

	if c.Database == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "Database path is required")
	}

	if c.ProgressClass == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "Progress class is required")
	}

	return res
}

func (c Config) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

func (c Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
