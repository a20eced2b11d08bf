package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Token store backends
const (
	TokenStoreSQL   = "sql"
	TokenStoreRedis = "redis"
)

// Config is the server configuration, read from GAMEHOST_* variables
type Config struct {
	Addr            string        `env:"ADDR"             envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`

	Database   Database `envPrefix:"DB_"`
	TokenStore string   `env:"TOKEN_STORE" envDefault:"sql"`
	Redis      Redis    `envPrefix:"REDIS_"`
	Content    Content  `envPrefix:"CONTENT_"`
	Auth       Auth     `envPrefix:"AUTH_"`

	// PurgeSchedule is a cron spec for the expired token purge; empty disables it
	PurgeSchedule string `env:"PURGE_SCHEDULE" envDefault:"@hourly"`
}

// Database selects the relational store
type Database struct {
	Driver       string `env:"DRIVER"         envDefault:"sqlite"`
	DSN          string `env:"DSN"            envDefault:"gamehost.db"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"2"`
	LogQueries   bool   `env:"LOG_QUERIES"`
}

// Redis configures the shared token store
type Redis struct {
	URL      string `env:"URL"       envDefault:"redis://localhost:6379"`
	PoolSize int    `env:"POOL_SIZE" envDefault:"10"`
}

// Content configures where extracted builds live
type Content struct {
	Root            string `env:"ROOT"              envDefault:"data/games"`
	MaxEntries      int    `env:"MAX_ENTRIES"       envDefault:"10000"`
	MaxTotalBytes   int64  `env:"MAX_TOTAL_BYTES"   envDefault:"536870912"`
	MaxArchiveBytes int64  `env:"MAX_ARCHIVE_BYTES" envDefault:"134217728"`
}

// Auth configures session tokens
type Auth struct {
	// Secret signs session tokens and is required
	Secret     string        `env:"SECRET,unset"`
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"1h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// AdminKey enables the admin routes when set
	AdminKey string `env:"ADMIN_KEY,unset"`
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	return parse(env.Options{Prefix: "GAMEHOST_"})
}

// LoadFrom reads the configuration from the given variables only
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Prefix: "GAMEHOST_", Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.TokenStore {
	case TokenStoreSQL, TokenStoreRedis:
	default:
		return fmt.Errorf("invalid token store %q: must be %q or %q", c.TokenStore, TokenStoreSQL, TokenStoreRedis)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver %q", c.Database.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("GAMEHOST_AUTH_SECRET must be set")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
