// Package config loads client settings from a YAML file, a .env file and
// TIMEBANK_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: TIMEBANK_NETWORK__MAX_RETRIES sets network.max_retries.
const EnvPrefix = "TIMEBANK_"

type Config struct {
	API       APIConfig       `koanf:"api"`
	Client    ClientConfig    `koanf:"client"`
	Network   NetworkConfig   `koanf:"network"`
	Cache     CacheConfig     `koanf:"cache"`
	Session   SessionConfig   `koanf:"session"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type APIConfig struct {
	BaseURL        string `koanf:"base_url"`
	MediaUploadURL string `koanf:"media_upload_url"`
	Version        int    `koanf:"version"`
}

// ClientConfig identifies the app to the backend. Values are sent in the
// X-User-Agent, X-TIMEBANK-ADID and Accept headers.
type ClientConfig struct {
	AppName       string `koanf:"app_name"`
	AppVersion    string `koanf:"app_version"`
	DeviceModel   string `koanf:"device_model"`
	OSVersion     string `koanf:"os_version"`
	AdvertisingID string `koanf:"advertising_id"`
}

type NetworkConfig struct {
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	Backoff           time.Duration `koanf:"backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
	Workers           int           `koanf:"workers"`
	ProbeAddress      string        `koanf:"probe_address"` // empty = always reachable
	ProbeTimeout      time.Duration `koanf:"probe_timeout"`
}

type CacheConfig struct {
	Dir         string `koanf:"dir"`
	ImageBudget string `koanf:"image_budget"` // e.g. "32MiB"
}

// ImageBudgetBytes parses ImageBudget.
func (c CacheConfig) ImageBudgetBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.ImageBudget)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.image_budget %q: %w", c.ImageBudget, err)
	}
	return int64(n), nil
}

type SessionConfig struct {
	Path string `koanf:"path"` // empty = in-memory
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func defaults() map[string]any {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return map[string]any{
		"api.base_url":               "https://api.timebank.jp",
		"api.media_upload_url":       "",
		"api.version":                1,
		"client.app_name":            "Timebank",
		"client.app_version":         "1.0.0",
		"client.device_model":        "generic",
		"client.os_version":          "unknown",
		"client.advertising_id":      "",
		"network.timeout":            "60s",
		"network.max_retries":        1,
		"network.backoff":            "0s",
		"network.backoff_multiplier": 1.0,
		"network.workers":            4,
		"network.probe_address":      "",
		"network.probe_timeout":      "2s",
		"cache.dir":                  filepath.Join(cacheDir, "timebank"),
		"cache.image_budget":         "32MiB",
		"session.path":               "",
		"telemetry.enabled":          false,
	}
}

// Default returns the built-in configuration, ignoring files and the
// environment.
func Default() *Config {
	k := koanf.New(".")
	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

// Load reads path (skipped when empty or missing), then the .env file next
// to it, then TIMEBANK_ variables. Unset keys take their defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := loadDotEnv(dotEnvPath(path)); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.API.BaseURL = substituteEnvVars(cfg.API.BaseURL)
	cfg.API.MediaUploadURL = substituteEnvVars(cfg.API.MediaUploadURL)
	cfg.Client.AdvertisingID = substituteEnvVars(cfg.Client.AdvertisingID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url must not be empty"))
	}
	if c.API.Version < 1 {
		errs = append(errs, fmt.Errorf("api.version must be positive, got %d", c.API.Version))
	}
	if c.Network.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("network.timeout must be positive, got %s", c.Network.Timeout))
	}
	if c.Network.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("network.max_retries must not be negative, got %d", c.Network.MaxRetries))
	}
	if c.Network.BackoffMultiplier < 1 {
		errs = append(errs, fmt.Errorf("network.backoff_multiplier must be >= 1, got %g", c.Network.BackoffMultiplier))
	}
	if c.Network.Workers < 1 {
		errs = append(errs, fmt.Errorf("network.workers must be positive, got %d", c.Network.Workers))
	}
	if _, err := c.Cache.ImageBudgetBytes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func applyDefaults(k *koanf.Koanf) {
	for key, value := range defaults() {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func dotEnvPath(configPath string) string {
	if configPath == "" {
		return ".env"
	}
	return filepath.Join(filepath.Dir(configPath), ".env")
}

// loadDotEnv exports the variables in path without overriding ones already
// set in the process environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
