package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TokenTTL is used for records that carry no usable expiry
	TokenTTL time.Duration

	// MaxTxRetries bounds optimistic transaction retries under contention
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		TokenTTL:     time.Hour,
		MaxTxRetries: 32,
	}
}
