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
const DefaultConfigFile = "atende.yaml"

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
	setString(&cfg.Server.Port, "ATENDE_PORT")
	setString(&cfg.Server.CORSOrigin, "ATENDE_CORS_ORIGIN")
	setFloat64(&cfg.Server.RateLimitRPS, "ATENDE_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "ATENDE_RATE_LIMIT_BURST")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ATENDE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ATENDE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ATENDE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ATENDE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ATENDE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Intent.URL, "ATENDE_INTENT_URL")
	setString(&cfg.Intent.APIKey, "ATENDE_INTENT_API_KEY")
	setString(&cfg.Intent.Model, "ATENDE_INTENT_MODEL")
	setDuration(&cfg.Intent.Timeout, "ATENDE_INTENT_TIMEOUT")
	setString(&cfg.Executor.URL, "ATENDE_EXECUTOR_URL")
	setString(&cfg.Executor.Secret, "ATENDE_EXECUTOR_SECRET")
	setDuration(&cfg.Executor.Timeout, "ATENDE_EXECUTOR_TIMEOUT")
	setDuration(&cfg.Engine.ConversationTTL, "ATENDE_CONVERSATION_TTL")
	setInt(&cfg.Engine.StuckThreshold, "ATENDE_STUCK_THRESHOLD")
	setDuration(&cfg.Engine.SweepInterval, "ATENDE_SWEEP_INTERVAL")
	setInt64(&cfg.Cache.MaxSizeMB, "ATENDE_CACHE_MAX_SIZE_MB")
	setDuration(&cfg.Cache.AgentTTL, "ATENDE_CACHE_AGENT_TTL")
	setBool(&cfg.Cache.Shared, "ATENDE_CACHE_SHARED")
	setInt(&cfg.Breaker.MaxFailures, "ATENDE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ATENDE_BREAKER_TIMEOUT")
	setString(&cfg.Logging.Level, "ATENDE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ATENDE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ATENDE_LOG_ASYNC")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Auth.Enabled, "ATENDE_AUTH_ENABLED")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Engine.StuckThreshold < 1 {
		return errors.New("engine.stuck_threshold must be >= 1")
	}
	if cfg.Engine.SweepInterval <= 0 {
		return errors.New("engine.sweep_interval must be positive")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
