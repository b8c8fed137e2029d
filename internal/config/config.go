package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the roi-server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Report    ReportConfig    `mapstructure:"report"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Environment     string        `mapstructure:"environment"`
	WebDir          string        `mapstructure:"web_dir"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Production reports whether internal error details must be hidden.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Environment, "production")
}

type StoreConfig struct {
	// Backend is one of memory, file, sqlite or postgres.
	Backend string `mapstructure:"backend"`
	// Path is the SQLite database or JSON state file.
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

type ReportConfig struct {
	Dir string `mapstructure:"dir"`
	// Format is pdf, html or auto (pdf when a browser is installed).
	Format     string `mapstructure:"format"`
	ChromePath string `mapstructure:"chrome_path"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	MaxKeys  int           `mapstructure:"max_keys"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
}

// RateLimitActive reports whether requests are rate limited.
func (c *Config) RateLimitActive() bool {
	return c.RateLimit.Enabled || c.Server.Production()
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3001"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Backend {
		case "file":
			cfg.Store.Path = "data/scenarios.json"
		default:
			cfg.Store.Path = "data/roi_simulator.db"
		}
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "reports"
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = "auto"
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 100
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.MaxKeys <= 0 {
		cfg.RateLimit.MaxKeys = 10000
	}
	if cfg.RateLimit.Redis.Prefix == "" {
		cfg.RateLimit.Redis.Prefix = "roi:ratelimit"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		if cfg.Server.Production() {
			cfg.Logging.Format = "json"
		} else {
			cfg.Logging.Format = "console"
		}
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "invoice-roi"
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "file", "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Report.Format {
	case "pdf", "html", "auto":
	default:
		return fmt.Errorf("unknown report.format %q", c.Report.Format)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("ratelimit.requests must be positive")
	}
	return nil
}
