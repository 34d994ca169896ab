package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration, loaded from the environment.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Redis    RedisConfig
	Fiscal   FiscalConfig
	Tax      TaxConfig
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnTime time.Duration
	MaxIdleTime time.Duration
}

type NATSConfig struct {
	URL string // empty disables event publishing
}

type RedisConfig struct {
	Addr string // empty disables the directory cache
	TTL  time.Duration
}

// FiscalConfig selects and configures the EBM gateway.
type FiscalConfig struct {
	Mode    string // "mock" or "http"
	BaseURL string
	Timeout time.Duration
}

// TaxConfig controls VAT classification behavior.
type TaxConfig struct {
	// MissPolicy is "default" (annotate standard rate on lookup miss)
	// or "strict" (fail the approval).
	MissPolicy string
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	// Best effort; production sets real env vars
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "be-fulfillment"),
			Version:     getEnv("SERVICE_VERSION", "dev"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8086),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", "fulfillment"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:    int32(getEnvInt("DB_MIN_CONNS", 2)),
			MaxConnTime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxIdleTime: getEnvDuration("DB_MAX_CONN_IDLE", 30*time.Minute),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
			TTL:  getEnvDuration("REDIS_TTL", 10*time.Minute),
		},
		Fiscal: FiscalConfig{
			Mode:    getEnv("FISCAL_MODE", "mock"),
			BaseURL: getEnv("FISCAL_BASE_URL", ""),
			Timeout: getEnvDuration("FISCAL_TIMEOUT", 10*time.Second),
		},
		Tax: TaxConfig{
			MissPolicy: getEnv("TAX_MISS_POLICY", "default"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Fiscal.Mode != "mock" && c.Fiscal.Mode != "http" {
		return fmt.Errorf("FISCAL_MODE must be 'mock' or 'http', got %q", c.Fiscal.Mode)
	}
	if c.Fiscal.Mode == "http" && c.Fiscal.BaseURL == "" {
		return fmt.Errorf("FISCAL_BASE_URL is required when FISCAL_MODE=http")
	}
	if c.Tax.MissPolicy != "default" && c.Tax.MissPolicy != "strict" {
		return fmt.Errorf("TAX_MISS_POLICY must be 'default' or 'strict', got %q", c.Tax.MissPolicy)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
