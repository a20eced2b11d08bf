package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/gamehost/internal/api"
	"github.com/mcoot/gamehost/internal/api/handler"
	"github.com/mcoot/gamehost/internal/config"
	"github.com/mcoot/gamehost/internal/content"
	"github.com/mcoot/gamehost/internal/dependencies/clock"
	"github.com/mcoot/gamehost/internal/dependencies/gamelock"
	"github.com/mcoot/gamehost/internal/dependencies/random"
	"github.com/mcoot/gamehost/internal/scheduler"
	"github.com/mcoot/gamehost/internal/services/auth"
	"github.com/mcoot/gamehost/internal/services/catalog"
	"github.com/mcoot/gamehost/internal/services/scores"
	"github.com/mcoot/gamehost/internal/services/versions"
	"github.com/mcoot/gamehost/internal/storage"
	redisstorage "github.com/mcoot/gamehost/internal/storage/redis"
	"github.com/mcoot/gamehost/internal/storage/sqlstore"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage    storage.Storage
	TokenStore storage.TokenStore
	Content    *content.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	CatalogService *catalog.Service
	VersionManager *versions.Manager
	ScoreService   *scores.Service
	Scheduler      *scheduler.Scheduler

	// Router serves the whole HTTP surface
	Router http.Handler

	closers []io.Closer
}

// Backends are the stores an App is built on
type Backends struct {
	Storage    storage.Storage
	TokenStore storage.TokenStore
	Content    *content.Store

	// HealthChecks are probed by GET /health
	HealthChecks map[string]handler.Pinger
}

// Options tune the services of an App
type Options struct {
	Auth            auth.Config
	MaxArchiveBytes int64
	AdminKey        string
}

// New opens the configured stores and wires every service
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Auth.Secret == "" {
		return nil, errors.New("a token secret is required")
	}

	var closers []io.Closer
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	db, err := sqlstore.Open(sqlstore.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		LogQueries:   cfg.Database.LogQueries,
	})
	if err != nil {
		return fail(err)
	}
	closers = append(closers, db)

	backends := Backends{
		Storage:      db,
		TokenStore:   db,
		HealthChecks: map[string]handler.Pinger{"database": db},
	}

	switch cfg.TokenStore {
	case config.TokenStoreSQL:
	case config.TokenStoreRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.TokenTTL = cfg.Auth.TokenTTL
		tokens, err := redisstorage.New(redisCfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, tokens)
		backends.TokenStore = tokens
		backends.HealthChecks["redis"] = tokens
	default:
		return fail(errors.New("invalid token store: must be 'sql' or 'redis'"))
	}

	contentStore, err := content.New(content.Config{
		Root:            cfg.Content.Root,
		MaxEntries:      cfg.Content.MaxEntries,
		MaxTotalBytes:   cfg.Content.MaxTotalBytes,
		MaxArchiveBytes: cfg.Content.MaxArchiveBytes,
	}, logger)
	if err != nil {
		return fail(err)
	}
	backends.Content = contentStore

	app := newWithDependencies(backends, clock.New(), random.New(), Options{
		Auth: auth.Config{
			Secret:     cfg.Auth.Secret,
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		},
		MaxArchiveBytes: cfg.Content.MaxArchiveBytes,
		AdminKey:        cfg.Auth.AdminKey,
	}, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(b Backends, clk clock.Clock, rnd random.Random, opts Options, logger *slog.Logger) *App {
	if opts.MaxArchiveBytes == 0 {
		opts.MaxArchiveBytes = b.Content.MaxArchiveBytes()
	}

	authService := auth.New(b.Storage, b.TokenStore, clk, rnd, logger, opts.Auth)
	locks := gamelock.New()
	catalogService := catalog.New(b.Storage, b.Content, locks, clk, logger)
	versionManager := versions.New(b.Storage, b.Content, locks, clk, logger)
	scoreService := scores.New(b.Storage, clk, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     authService,
		CatalogService:  catalogService,
		VersionManager:  versionManager,
		ScoreService:    scoreService,
		MaxArchiveBytes: opts.MaxArchiveBytes,
		AdminKey:        opts.AdminKey,
		HealthChecks:    b.HealthChecks,
	})

	return &App{
		Storage:        b.Storage,
		TokenStore:     b.TokenStore,
		Content:        b.Content,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		CatalogService: catalogService,
		VersionManager: versionManager,
		ScoreService:   scoreService,
		Scheduler:      scheduler.New(authService.Tokens(), logger),
		Router:         router,
	}
}

// Close releases the stores opened by New
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}
