// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendRedis, BackendBolt}

type Config struct {
	// HTTP server
	Port     string
	LogLevel string

	// Blob storage
	DataBackend   string
	BlobKey       string
	SQLiteDBPath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BoltDBPath    string

	// Advice. An empty APIKey disables generation.
	APIKey         string
	AdviceModel    string
	AdviceTimeout  time.Duration
	AdviceCacheTTL time.Duration

	// AMQP. An empty URL disables mutation events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:   strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		BlobKey:       getEnv("BLOB_KEY", "transactions"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finance.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		BoltDBPath:    getEnv("BOLT_DB_PATH", "./data/finance.bolt"),

		APIKey:         strings.TrimSpace(getEnv("API_KEY", "")),
		AdviceModel:    getEnv("ADVICE_MODEL", "gemini-2.5-flash"),
		AdviceTimeout:  getEnvDuration("ADVICE_TIMEOUT", 30*time.Second),
		AdviceCacheTTL: getEnvDuration("ADVICE_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finance"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errs = append(errs, err.Error())
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, "Redis address cannot be empty when using redis backend")
		}
		if c.RedisDB < 0 {
			errs = append(errs, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
		}
	case BackendBolt:
		if c.BoltDBPath == "" {
			errs = append(errs, "Bolt database path cannot be empty when using bolt backend")
		} else if err := ensureDir(c.BoltDBPath); err != nil {
			errs = append(errs, err.Error())
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if strings.TrimSpace(c.BlobKey) == "" {
		errs = append(errs, "blob key cannot be empty")
	}

	if c.AdviceTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid advice timeout %v: must be at least 1 second", c.AdviceTimeout))
	}
	if c.AdviceCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid advice cache ttl %v: must not be negative", c.AdviceCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker adds the requirements of the sync worker, which cannot run
// without a broker or a spreadsheet.
func (c *Config) ValidateWorker() error {
	var errs []string
	if err := c.Validate(); err != nil {
		errs = append(errs, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP URL is required for the sync worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required for the sync worker")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "Google Sheet name is required for the sync worker")
	}
	if c.DataBackend == BackendMemory {
		errs = append(errs, "the sync worker needs a shared data backend, not memory")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// AdviceEnabled reports whether an API key is configured.
func (c *Config) AdviceEnabled() bool {
	return c.APIKey != ""
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create database directory '%s': %v", dir, err)
		}
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
