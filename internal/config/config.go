// Package config reads process configuration from the environment. A .env
// file, when present, is loaded first and never overrides variables that
// are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	HTTPPort        string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	GatewayDriver string
	MongoURI      string
	MongoDBName   string
	SQLDSN        string

	MongoMaxPoolSize    uint64
	MongoMinPoolSize    uint64
	MongoConnectTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	// SessionToken is restored on start-up so a restart keeps the user signed in.
	SessionToken string

	KafkaBrokers  []string
	CheckoutTopic string
	ConsumerGroup string

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Load reads the configuration. envFiles default to ".env"; missing files
// are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		GatewayDriver: strings.ToLower(getEnv("GATEWAY_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
		SQLDSN:        getEnv("SQL_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionToken:  getEnv("SESSION_TOKEN", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		CheckoutTopic: getEnv("CHECKOUT_TOPIC", "checkout-outbox"),
		ConsumerGroup: getEnv("KAFKA_GROUP_ID", "storefront-consumer"),
	}

	var errs []error
	cfg.RequestTimeout = getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs)
	cfg.SessionTTL = getDuration("SESSION_TTL", 24*time.Hour, &errs)
	cfg.BreakerOpenTimeout = getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second, &errs)
	cfg.MongoConnectTimeout = getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second, &errs)
	cfg.MongoMaxPoolSize = getUint("MONGO_MAX_POOL_SIZE", 100, &errs)
	cfg.MongoMinPoolSize = getUint("MONGO_MIN_POOL_SIZE", 10, &errs)

	maxFailures, err := strconv.ParseUint(getEnv("BREAKER_MAX_FAILURES", "5"), 10, 32)
	if err != nil {
		errs = append(errs, fmt.Errorf("BREAKER_MAX_FAILURES: %w", err))
	}
	cfg.BreakerMaxFailures = uint32(maxFailures)

	switch cfg.GatewayDriver {
	case DriverMongo:
	case DriverSQLite:
		if cfg.SQLDSN == "" {
			cfg.SQLDSN = "file:storefront.db"
		}
	case DriverPostgres:
		if cfg.SQLDSN == "" {
			errs = append(errs, errors.New("SQL_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("GATEWAY_DRIVER %q is not one of mongo, sqlite, postgres", cfg.GatewayDriver))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getUint(key string, defaultValue uint64, errs *[]error) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
