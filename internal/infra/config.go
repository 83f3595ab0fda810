package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"wallet_go/internal/domain"
)

// Storage drivers accepted in storage.driver.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds every setting of the wallet app and the native host.
// LoadConfig reads it from yaml, then environment variables override it.
type Config struct {
	App struct {
		Name       string `yaml:"name"`
		Version    string `yaml:"version"`
		WalletName string `yaml:"wallet_name"`
	} `yaml:"app"`

	Storage struct {
		Driver string `yaml:"driver"` // sqlite | redis
		Path   string `yaml:"path"`   // sqlite file; empty = <workspace>/data/preferences.db
		Redis  struct {
			Addr      string `yaml:"addr"`
			Password  string `yaml:"password"`
			DB        int    `yaml:"db"`
			Namespace string `yaml:"namespace"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Preference struct {
		Key     string `yaml:"key"`
		Default string `yaml:"default"`
	} `yaml:"preference"`

	Native struct {
		URL              string `yaml:"url"` // empty = no native binding, fallback is used
		ProbeTimeoutMS   int    `yaml:"probe_timeout_ms"`
		CallTimeoutMS    int    `yaml:"call_timeout_ms"`
		FailureThreshold int    `yaml:"failure_threshold"`
	} `yaml:"native"`

	Host struct {
		Listen     string  `yaml:"listen"`
		Currency   string  `yaml:"currency"`
		EventShape string  `yaml:"event_shape"` // object | string
		UIBurst    int     `yaml:"ui_burst"`
		UIPerSec   float64 `yaml:"ui_rate_per_sec"`
	} `yaml:"host"`

	Rates struct {
		Dir string `yaml:"dir"` // optional override of the embedded tables
	} `yaml:"rates"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"logging"`
}

// DefaultConfig returns a config that runs without any file: sqlite storage
// in the workspace and no native binding.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "wallet-go"
	cfg.App.Version = "1.0.0"
	cfg.App.WalletName = "Wallet 1"
	cfg.Storage.Driver = DriverSQLite
	cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	cfg.Storage.Redis.Namespace = "wallet"
	cfg.Preference.Key = "app_currency_setting"
	cfg.Preference.Default = string(domain.DefaultFiat)
	cfg.Native.ProbeTimeoutMS = 1000
	cfg.Native.CallTimeoutMS = 2000
	cfg.Native.FailureThreshold = 5
	cfg.Host.Listen = "127.0.0.1:8787"
	cfg.Host.Currency = string(domain.DefaultFiat)
	cfg.Host.EventShape = "object"
	cfg.Host.UIBurst = 10
	cfg.Host.UIPerSec = 5
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// LoadConfig reads the yaml file at path on top of DefaultConfig.
// A missing file is not an error: defaults are used and a warning logged.
func LoadConfig(path string) (*Config, error) {
	// .env is optional, real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("Config file not found, using defaults", slog.String("path", path))
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis storage requires storage.redis.addr")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.Preference.Key == "" {
		return fmt.Errorf("preference key must not be empty")
	}
	if _, err := domain.ParseFiatCode(c.Preference.Default); err != nil {
		return fmt.Errorf("preference default: %w", err)
	}

	if c.Native.URL != "" && !strings.HasPrefix(c.Native.URL, "ws://") && !strings.HasPrefix(c.Native.URL, "wss://") {
		return fmt.Errorf("invalid native bridge URL: %s", c.Native.URL)
	}
	if c.Native.ProbeTimeoutMS <= 0 || c.Native.CallTimeoutMS <= 0 {
		return fmt.Errorf("native timeouts must be positive")
	}
	if c.Native.FailureThreshold <= 0 {
		return fmt.Errorf("native failure threshold must be positive")
	}

	if _, err := domain.ParseFiatCode(c.Host.Currency); err != nil {
		return fmt.Errorf("host currency: %w", err)
	}
	if c.Host.EventShape != "object" && c.Host.EventShape != "string" {
		return fmt.Errorf("host event shape must be object or string, got %q", c.Host.EventShape)
	}

	return nil
}

// ProbeTimeout is the native availability probe deadline.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Native.ProbeTimeoutMS) * time.Millisecond
}

// CallTimeout bounds a single native call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Native.CallTimeoutMS) * time.Millisecond
}

// overrideWithEnv lets environment variables take precedence over the file.
func overrideWithEnv(cfg *Config) {
	if cfg.Storage.Redis.Password != "" {
		slog.Warn("Redis password found in config file, prefer WALLET_REDIS_PASSWORD")
	}

	if v := os.Getenv("WALLET_NATIVE_URL"); v != "" {
		cfg.Native.URL = v
	}
	if v := os.Getenv("WALLET_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("WALLET_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("WALLET_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("WALLET_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("WALLET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WALLET_HOST_LISTEN"); v != "" {
		cfg.Host.Listen = v
	}
}
