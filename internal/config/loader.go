package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "hivemind.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("HIVEMIND_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
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
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
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
	setString(&cfg.Server.Port, "HIVEMIND_PORT")
	setString(&cfg.Server.CORSOrigin, "HIVEMIND_CORS_ORIGIN")

	// Ledger
	setString(&cfg.Ledger.RPCURL, "HIVEMIND_RPC_URL")
	setInt64(&cfg.Ledger.ChainID, "HIVEMIND_CHAIN_ID")
	setString(&cfg.Ledger.CoordinatorAddress, "HIVEMIND_COORDINATOR_ADDRESS")
	setString(&cfg.Ledger.TokenAddress, "HIVEMIND_TOKEN_ADDRESS")
	setInt(&cfg.Ledger.MaxConcurrentReads, "HIVEMIND_MAX_CONCURRENT_READS")
	setDuration(&cfg.Ledger.PollInterval, "HIVEMIND_POLL_INTERVAL")
	setDuration(&cfg.Ledger.ConfirmTimeout, "HIVEMIND_CONFIRM_TIMEOUT")

	// Wallet
	setString(&cfg.Wallet.KeystorePath, "HIVEMIND_KEYSTORE")
	setString(&cfg.Wallet.Passphrase, "HIVEMIND_KEYSTORE_PASSPHRASE")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "HIVEMIND_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "HIVEMIND_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "HIVEMIND_CACHE_L2_TTL")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HIVEMIND_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HIVEMIND_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HIVEMIND_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HIVEMIND_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "HIVEMIND_PG_HEALTH_CHECK")

	setString(&cfg.Logging.Level, "HIVEMIND_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HIVEMIND_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "HIVEMIND_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "HIVEMIND_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HIVEMIND_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "HIVEMIND_RATE_RPS")
	setInt(&cfg.Rate.Burst, "HIVEMIND_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "HIVEMIND_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "HIVEMIND_RATE_MAX_IDLE_TIME")

	// OpenTelemetry
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "HIVEMIND_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "HIVEMIND_OTEL_SAMPLE_RATE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")

	// MCP
	setBool(&cfg.MCP.Enabled, "HIVEMIND_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "HIVEMIND_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "HIVEMIND_MCP_API_KEY")

	setString(&cfg.SecretsFile, "HIVEMIND_SECRETS_FILE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Ledger.RPCURL == "" {
		return errors.New("ledger.rpc_url is required")
	}
	if cfg.Ledger.ChainID < 1 {
		return errors.New("ledger.chain_id must be >= 1")
	}
	if _, err := address.Parse(cfg.Ledger.CoordinatorAddress); err != nil {
		return fmt.Errorf("ledger.coordinator_address: %w", err)
	}
	if _, err := address.Parse(cfg.Ledger.TokenAddress); err != nil {
		return fmt.Errorf("ledger.token_address: %w", err)
	}
	if cfg.Ledger.MaxConcurrentReads < 1 {
		return errors.New("ledger.max_concurrent_reads must be >= 1")
	}
	if cfg.Ledger.PollInterval < 0 {
		return errors.New("ledger.poll_interval must not be negative")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
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
