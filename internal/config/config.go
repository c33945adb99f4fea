package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	MealDB    MealDBConfig    `yaml:"mealdb"`
	Storage   StorageConfig   `yaml:"storage"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	CORSOrigins     []string `yaml:"cors_origins"`
	RequestTimeout  string   `yaml:"request_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// MealDBConfig configures the remote recipe service client.
type MealDBConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// StorageConfig selects the durable slot backend for favorites.
type StorageConfig struct {
	Driver string `yaml:"driver"` // file, sqlite, postgres, memory
	DSN    string `yaml:"dsn"`
	Dir    string `yaml:"dir"`
}

// ThumbnailConfig configures the thumbnail resize cache.
type ThumbnailConfig struct {
	CacheDir     string `yaml:"cache_dir"`
	DefaultWidth uint   `yaml:"default_width"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"http://localhost:5173"},
			RequestTimeout:  "15s",
			ShutdownTimeout: "10s",
		},
		MealDB: MealDBConfig{
			BaseURL: "https://www.themealdb.com/api/json/v1/1",
			Timeout: "10s",
		},
		Storage: StorageConfig{
			Driver: "file",
			Dir:    "data",
		},
		Thumbnail: ThumbnailConfig{
			CacheDir:     "images",
			DefaultWidth: 300,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECIPES_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v := os.Getenv("MEALDB_BASE_URL"); v != "" {
		c.MealDB.BaseURL = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr not set")
	}
	if c.MealDB.BaseURL == "" {
		return fmt.Errorf("mealdb.base_url not set")
	}
	for name, d := range map[string]string{
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"mealdb.timeout":          c.MealDB.Timeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, d, err)
		}
	}

	switch c.Storage.Driver {
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir not set for file driver")
		}
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn not set for %s driver", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}

// RequestTimeout returns the per-request timeout for outbound calls.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.RequestTimeout)
	return d
}

// ShutdownTimeout returns the graceful shutdown window.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// MealDBTimeout returns the HTTP client timeout for the remote recipe service.
func (c *Config) MealDBTimeout() time.Duration {
	d, _ := time.ParseDuration(c.MealDB.Timeout)
	return d
}
