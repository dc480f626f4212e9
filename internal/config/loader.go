package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "secondguess.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SECONDGUESS_PORT")
	setString(&cfg.Server.CORSOrigin, "SECONDGUESS_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SECONDGUESS_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SECONDGUESS_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SECONDGUESS_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SECONDGUESS_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SECONDGUESS_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "SECONDGUESS_MODEL")
	setDuration(&cfg.LiteLLM.Timeout, "SECONDGUESS_LLM_TIMEOUT")
	setString(&cfg.Logging.Level, "SECONDGUESS_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SECONDGUESS_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "SECONDGUESS_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SECONDGUESS_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "SECONDGUESS_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "SECONDGUESS_CACHE_TTL")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate rejects configurations that cannot work.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if cfg.LiteLLM.URL == "" {
		return errors.New("litellm url must not be empty")
	}
	if cfg.LiteLLM.Model == "" {
		return errors.New("litellm model must not be empty")
	}
	if cfg.Breaker.MaxFailures <= 0 {
		return errors.New("breaker max_failures must be positive")
	}
	if cfg.Breaker.Timeout <= 0 {
		return errors.New("breaker timeout must be positive")
	}
	if cfg.Cache.MaxSizeMB <= 0 {
		return errors.New("cache max_size_mb must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
