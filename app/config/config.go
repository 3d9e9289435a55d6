package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Session backends
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds badger settings
type DatabaseConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// SessionConfig holds session cookie and store settings
type SessionConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookie_name"`
	Secure     bool          `yaml:"secure"`
}

// RedisConfig holds redis connection settings, used when Session.Backend is "redis"
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/badger",
		},
		Session: SessionConfig{
			Backend:    BackendBadger,
			TTL:        24 * time.Hour,
			CookieName: "sessionid",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("QUILL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("QUILL_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("QUILL_SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("QUILL_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("QUILL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendBadger, BackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie name is required")
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr is required")
	}
	return nil
}
