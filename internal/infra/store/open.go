package store

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectionConfig holds Redis connection pool configuration.
type ConnectionConfig struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		PoolSize:     20,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Open creates and configures a new Redis client.
// It reads REDIS_ADDR from environment and applies connection pool settings.
func Open() redis.UniversalClient {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Fatal("REDIS_ADDR not set")
	}

	cfg := getConnectionConfigFromEnv()
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           getRedisDB(),
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	slog.Info("redis connection pool configured",
		slog.String("addr", addr),
		slog.Int("pool_size", cfg.PoolSize),
		slog.Int("min_idle_conns", cfg.MinIdleConns))

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}

	slog.Info("redis connection established successfully")
	return client
}

func getRedisDB() int {
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if val, err := strconv.Atoi(dbStr); err == nil && val >= 0 {
			return val
		}
		slog.Warn("Invalid REDIS_DB value, using default",
			slog.String("value", dbStr))
	}
	return 0
}

// getConnectionConfigFromEnv reads connection pool configuration from environment variables.
// Falls back to default values if not set.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()

	if poolSize := os.Getenv("REDIS_POOL_SIZE"); poolSize != "" {
		if val, err := strconv.Atoi(poolSize); err == nil && val > 0 {
			cfg.PoolSize = val
		}
	}

	if minIdle := os.Getenv("REDIS_MIN_IDLE_CONNS"); minIdle != "" {
		if val, err := strconv.Atoi(minIdle); err == nil && val >= 0 {
			cfg.MinIdleConns = val
		}
	}

	if dialTimeout := os.Getenv("REDIS_DIAL_TIMEOUT"); dialTimeout != "" {
		if val, err := time.ParseDuration(dialTimeout); err == nil && val > 0 {
			cfg.DialTimeout = val
		}
	}

	if readTimeout := os.Getenv("REDIS_READ_TIMEOUT"); readTimeout != "" {
		if val, err := time.ParseDuration(readTimeout); err == nil && val > 0 {
			cfg.ReadTimeout = val
		}
	}

	return cfg
}
