package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. ROI_SERVER_ADDR.
const EnvPrefix = "ROI"

// Load reads configuration in increasing precedence: built-in defaults, an
// optional YAML file, a .env file and the process environment. An empty
// path searches for config.yaml in . and ./configs.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setKeys(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	overrideFromLegacyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setKeys registers every key so AutomaticEnv can bind it during Unmarshal.
func setKeys(v *viper.Viper) {
	for key, def := range map[string]any{
		"server.addr":              "",
		"server.environment":       "",
		"server.web_dir":           "",
		"server.cors_origins":      []string{},
		"server.shutdown_timeout":  10 * time.Second,
		"store.backend":            "",
		"store.path":               "",
		"store.dsn":                "",
		"report.dir":               "",
		"report.format":            "",
		"report.chrome_path":       "",
		"ratelimit.enabled":        false,
		"ratelimit.requests":       0,
		"ratelimit.window":         time.Minute,
		"ratelimit.max_keys":       0,
		"ratelimit.redis.address":  "",
		"ratelimit.redis.password": "",
		"ratelimit.redis.db":       0,
		"ratelimit.redis.prefix":   "",
		"logging.level":            "",
		"logging.format":           "",
		"telemetry.service_name":   "",
		"telemetry.otlp_endpoint":  "",
		"telemetry.insecure":       false,
	} {
		v.SetDefault(key, def)
	}
}

// overrideFromLegacyEnv honours PORT, DB_PATH and NODE_ENV when the
// namespaced variables are not set.
func overrideFromLegacyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" && cfg.Server.Addr == "" {
		cfg.Server.Addr = ":" + port
	}
	if p := os.Getenv("DB_PATH"); p != "" && cfg.Store.Path == "" {
		cfg.Store.Path = p
	}
	if env := os.Getenv("NODE_ENV"); env != "" && cfg.Server.Environment == "" {
		cfg.Server.Environment = env
	}
}
