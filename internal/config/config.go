// Package config provides hierarchical configuration loading for HiveMind.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the HiveMind service and CLI.
type Config struct {
	Server   Server   `yaml:"server"`
	Ledger   Ledger   `yaml:"ledger"`
	Wallet   Wallet   `yaml:"wallet"`
	Cache    Cache    `yaml:"cache"`
	NATS     NATS     `yaml:"nats"`
	Postgres Postgres `yaml:"postgres"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
	Rate     Rate     `yaml:"rate"`
	OTEL     OTEL     `yaml:"otel"`
	MCP      MCP      `yaml:"mcp"`

	// SecretsFile holds KEY=VALUE secrets re-read on SIGHUP.
	SecretsFile string `yaml:"secrets_file"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Ledger holds the RPC endpoint and contract coordinates.
type Ledger struct {
	RPCURL             string        `yaml:"rpc_url"`
	ChainID            int64         `yaml:"chain_id"`
	CoordinatorAddress string        `yaml:"coordinator_address"`
	TokenAddress       string        `yaml:"token_address"`
	MaxConcurrentReads int           `yaml:"max_concurrent_reads"` // Per-id reads in flight during a refresh (default: 8)
	PollInterval       time.Duration `yaml:"poll_interval"`        // 0 disables background refresh
	ConfirmTimeout     time.Duration `yaml:"confirm_timeout"`      // Upper bound on waiting for a receipt
}

// Wallet holds the signer. An empty keystore path means read-only mode.
type Wallet struct {
	KeystorePath string `yaml:"keystore_path"`
	Passphrase   string `yaml:"-"`
}

// Cache holds tiered cache configuration for frozen ledger records.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L2Bucket    string        `yaml:"l2_bucket"` // empty disables the NATS KV tier
	L2TTL       time.Duration `yaml:"l2_ttl"`
}

// NATS holds NATS JetStream configuration. An empty URL disables
// cross-instance notifications.
type NATS struct {
	URL string `yaml:"url"`
}

// Postgres holds PostgreSQL connection configuration for the journal.
// An empty DSN disables the journal.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for ledger reads.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds per-IP rate limiting configuration for the API.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// OTEL holds OpenTelemetry export configuration.
type OTEL struct {
	Endpoint    string  `yaml:"endpoint"` // empty disables export
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
	ServiceName string  `yaml:"service_name"`
}

// MCP holds the agent tool server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	APIKey  string `yaml:"api_key"`
}

// Defaults returns a Config with sensible development defaults targeting
// the Base Sepolia deployment.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:5173",
		},
		Ledger: Ledger{
			RPCURL:             "https://sepolia.base.org",
			ChainID:            84532,
			CoordinatorAddress: "0xec8419C9F4509d5e83E4329721cFCb9f27f6B649",
			TokenAddress:       "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			MaxConcurrentReads: 8,
			ConfirmTimeout:     2 * time.Minute,
		},
		Cache: Cache{
			L1MaxSizeMB: 16,
			L2TTL:       24 * time.Hour,
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "hivemind",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		OTEL: OTEL{
			Insecure:    true,
			SampleRate:  1.0,
			ServiceName: "hivemind",
		},
		MCP: MCP{
			Addr: ":3001",
		},
	}
}
