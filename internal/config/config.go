package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendSQLite}

type Config struct {
	// HTTP servers
	Port      string
	EdgePort  string
	OriginURL string

	// Transaction storage
	DataBackend       string
	SQLiteDBPath      string
	StorePersistEmpty bool

	// Offline cache
	CacheBackend        string
	CacheVersion        string
	CacheMaxEntries     int
	CacheTTL            time.Duration
	UpdateInterval      time.Duration
	PrecacheConcurrency int

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		EdgePort:  getEnv("EDGE_PORT", "8082"),
		OriginURL: getEnv("ORIGIN_URL", "http://localhost:8081"),

		DataBackend:       getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/spendwise.db"),
		StorePersistEmpty: getEnvBool("STORE_PERSIST_EMPTY", false),

		CacheBackend:        getEnv("CACHE_BACKEND", BackendMemory),
		CacheVersion:        getEnv("CACHE_VERSION", "spendwise-v1"),
		CacheMaxEntries:     getEnvInt("CACHE_MAX_ENTRIES", 500),
		CacheTTL:            getEnvDuration("CACHE_TTL", 0),
		UpdateInterval:      getEnvDuration("UPDATE_INTERVAL", time.Hour),
		PrecacheConcurrency: getEnvInt("PRECACHE_CONCURRENCY", 4),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendwise"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, validatePort("port", c.Port)...)
	errors = append(errors, validatePort("edge port", c.EdgePort)...)

	if u, err := url.Parse(c.OriginURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid origin URL '%s': %v", c.OriginURL, err))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid origin URL '%s': must be an absolute http(s) URL", c.OriginURL))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if !slices.Contains(validBackends, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite || c.CacheBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if strings.TrimSpace(c.CacheVersion) == "" {
		errors = append(errors, "cache version cannot be empty")
	}
	if c.CacheMaxEntries < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must not be negative", c.CacheMaxEntries))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.UpdateInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid update interval %v: must be at least 1 minute", c.UpdateInterval))
	} else if c.UpdateInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid update interval %v: must be at most 24 hours", c.UpdateInterval))
	}
	if c.PrecacheConcurrency < 1 || c.PrecacheConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid precache concurrency %d: must be between 1 and 32", c.PrecacheConcurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
