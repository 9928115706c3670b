package app

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/upb/beinus-auth/config"
	"github.com/upb/beinus-auth/handlers"
	"github.com/upb/beinus-auth/middleware"
	"github.com/upb/beinus-auth/repositories"
	"github.com/upb/beinus-auth/repositories/bolt"
	"github.com/upb/beinus-auth/repositories/postgres"
	redisledger "github.com/upb/beinus-auth/repositories/redis"
	"github.com/upb/beinus-auth/services"
	"github.com/upb/beinus-auth/token"
	"go.uber.org/zap"
)

// PublicPaths are reachable without an access token
var PublicPaths = []string{
	"/healthz",
	"/readyz",
	"/login",
	"/join",
	"/reissue",
	"/logout",
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Stores
	Credentials repositories.CredentialStore
	Ledger      repositories.RefreshLedger

	// Services
	Codec         *token.Codec
	TokenService  *services.TokenService
	Authenticator *services.Authenticator
	Registrar     *services.Registrar
	Sweeper       *services.LedgerSweeper

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
	HealthHandler  *handlers.HealthHandler

	closers []func() error
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize the refresh ledger
	if err := deps.initLedger(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize refresh ledger: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("ledger", cfg.Ledger.Backend))
	return deps, nil
}

// NewDependenciesWithStores wires services and handlers over already built
// stores. Infrastructure such as the database pool is left nil.
func NewDependenciesWithStores(cfg *config.Config, logger *zap.Logger, stores *repositories.Repositories, opts ...token.Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Credentials: stores.Credentials,
		Ledger:      stores.Refresh,
	}

	if err := deps.initServices(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP(cfg)
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(ctx, cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()
	d.Credentials = factory.NewCredentialStore()
	d.closers = append(d.closers, factory.Close)

	return nil
}

// initLedger selects the refresh ledger backend
func (d *Dependencies) initLedger(ctx context.Context, cfg *config.Config) error {
	switch cfg.Ledger.Backend {
	case config.LedgerPostgres, "":
		d.Ledger = d.RepoFactory.NewRefreshLedger()

	case config.LedgerRedis:
		opts, err := redisOptions(cfg.Redis)
		if err != nil {
			return err
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis ping failed: %w", err)
		}
		d.Ledger = redisledger.NewRefreshLedger(client, cfg.Ledger.RedisPrefix, d.Logger)
		d.closers = append(d.closers, client.Close)

	case config.LedgerBolt:
		ledger, err := bolt.Open(cfg.Ledger.BoltPath, cfg.Ledger.Timeout, d.Logger)
		if err != nil {
			return err
		}
		d.Ledger = ledger
		d.closers = append(d.closers, ledger.Close)

	default:
		return fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}

	d.Logger.Info("refresh ledger initialized", zap.String("backend", cfg.Ledger.Backend))
	return nil
}

func redisOptions(cfg config.RedisConfig) (*goredis.Options, error) {
	if cfg.URL != "" {
		opts, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

// initServices builds the codec and the services layered on the stores
func (d *Dependencies) initServices(cfg *config.Config, opts ...token.Option) error {
	codec, err := token.NewCodec([]byte(cfg.JWT.Secret), opts...)
	if err != nil {
		return err
	}
	d.Codec = codec

	tokens, err := services.NewTokenService(codec, d.Ledger, services.TokenConfig{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		LedgerTimeout: cfg.Ledger.Timeout,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.TokenService = tokens

	d.Authenticator = services.NewAuthenticator(d.Credentials, cfg.Auth.StoreTimeout, d.Logger)
	d.Registrar = services.NewRegistrar(d.Credentials, cfg.Auth.BcryptCost, cfg.Auth.StoreTimeout, d.Logger)
	d.Sweeper = services.NewLedgerSweeper(d.Ledger, cfg.Ledger.SweepInterval, cfg.Ledger.Timeout, d.Logger)

	return nil
}

// initHTTP builds middleware and handlers
func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenService, d.Logger, PublicPaths...)
	d.AuthHandler = handlers.NewAuthHandler(d.Authenticator, d.Registrar, d.TokenService, cfg.Cookie, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Logger)

	var db *sql.DB
	if d.DB != nil {
		db = d.DB.DB
	}
	var ledger handlers.Pinger
	if d.Ledger != nil {
		ledger = d.Ledger
	}
	d.HealthHandler = handlers.NewHealthHandler(db, ledger, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil

	// Sync logger
	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
