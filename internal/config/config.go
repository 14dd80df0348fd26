// Package config provides configuration management for the trade ledger service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chains   ChainsConfig
	Webhook  WebhookConfig
	Pricing  PricingConfig
	Poll     PollConfig
	Ranking  RankingConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds all datastore configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration for the event queue
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	QueueKey string
}

// ClickHouseConfig holds ClickHouse configuration for the raw event archive.
// Optional: an empty host disables archiving.
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ChainsConfig holds per-chain indexing provider configuration
type ChainsConfig struct {
	Solana SolanaConfig
	Monad  MonadConfig
}

// SolanaConfig holds the Solana enhanced-transactions provider configuration
type SolanaConfig struct {
	APIKey  string
	BaseURL string
}

// MonadConfig holds the Monad (EVM) indexer configuration
type MonadConfig struct {
	APIKey  string
	BaseURL string
}

// WebhookConfig holds webhook ingress configuration
type WebhookConfig struct {
	Secret string // shared bearer secret, also passed on webhook registration
}

// PricingConfig holds price oracle configuration
type PricingConfig struct {
	CacheTTL time.Duration
}

// PollConfig holds the scheduled reconciliation poll configuration
type PollConfig struct {
	Interval  time.Duration
	PageLimit int
	Window    time.Duration // how far back each poll reconciles
}

// RankingConfig holds the ranking recompute schedule
type RankingConfig struct {
	Interval        time.Duration
	OrphanRetention time.Duration // non-current generations older than this are pruned
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "trade_ledger"),
				User:           getEnv("POSTGRES_USER", "ledger"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:     getEnv("REDIS_HOST", "localhost"),
				Port:     getEnv("REDIS_PORT", "6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
				QueueKey: getEnv("REDIS_QUEUE_KEY", "trade_events"),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "trade_ledger"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		},
		Chains: ChainsConfig{
			Solana: SolanaConfig{
				APIKey:  getEnv("SOLANA_INDEXER_API_KEY", ""),
				BaseURL: getEnv("SOLANA_INDEXER_BASE_URL", "https://api.helius.xyz"),
			},
			Monad: MonadConfig{
				APIKey:  getEnv("MONAD_INDEXER_API_KEY", ""),
				BaseURL: getEnv("MONAD_INDEXER_BASE_URL", ""),
			},
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
		Pricing: PricingConfig{
			CacheTTL: getEnvAsDuration("PRICE_CACHE_TTL", 30*time.Second),
		},
		Poll: PollConfig{
			Interval:  getEnvAsDuration("POLL_INTERVAL", 5*time.Minute),
			PageLimit: getEnvAsInt("POLL_PAGE_LIMIT", 50),
			Window:    getEnvAsDuration("POLL_WINDOW", 24*time.Hour),
		},
		Ranking: RankingConfig{
			Interval:        getEnvAsDuration("RANKING_INTERVAL", 10*time.Minute),
			OrphanRetention: getEnvAsDuration("RANKING_ORPHAN_RETENTION", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// PostgresURL builds a database URL for the migrations runner
func (c *PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
