// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gearhire-backend/internal/config"
	"gearhire-backend/internal/jobs"
	"gearhire-backend/internal/limiter"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/repository/postgres"
	"gearhire-backend/internal/security"
	"gearhire-backend/internal/service"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// App holds the process-scoped handles. Close releases them.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Store   *postgres.Store
	Redis   *redis.Client
	Auth    service.AuthService
	Catalog service.CatalogService
	Orders  service.OrderService
	Jobs    *jobs.JobRunner
}

// InitLogging configures the global logger and, when log.mongo_uri is set,
// the MongoDB sink. The returned func flushes the sink.
func InitLogging(ctx context.Context, cfg *config.Config) func() {
	if cfg.Log.MongoURI == "" {
		logger.Initialize(cfg.Log.Level, cfg.Log.Format)
		return func() {}
	}

	sink, err := logger.NewMongoHandler(ctx, cfg.Log.MongoURI, cfg.Log.MongoDatabase, cfg.Log.MongoCollection, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		logger.Initialize(cfg.Log.Level, cfg.Log.Format)
		logger.Warn("MongoDB log sink unavailable, logging to stdout only", "error", err)
		return func() {}
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format, sink)
	logger.Info("MongoDB log sink enabled", "database", cfg.Log.MongoDatabase, "collection", cfg.Log.MongoCollection)
	return sink.Close
}

// OpenDB opens and pings the Postgres pool.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Debug("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")
	return db, nil
}

// New connects to Postgres (and Redis when configured) and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := postgres.NewStore(db)

	a := &App{
		Config: cfg,
		DB:     db,
		Store:  store,
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("Redis unreachable, using in-process rate limiter", "addr", cfg.Redis.Addr, "error", err)
			client.Close()
		} else {
			logger.Info("Redis connection established", "addr", cfg.Redis.Addr)
			a.Redis = client
		}
	}

	tokens := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTokenTTL())
	emailSvc := service.NewEmailService(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName, cfg.Pricing.Currency)

	a.Auth = service.NewAuthService(store.UserRepository, tokens)
	a.Catalog = service.NewCatalogService(store.ProductRepository, store.CategoryRepository)
	a.Orders = service.NewOrderService(
		store.OrderRepository,
		store.ProductRepository,
		store.UserRepository,
		emailSvc,
		service.OrderSettings{
			TaxRateBps:          cfg.Pricing.TaxRateBps,
			DeliveryChargeCents: cfg.Pricing.DeliveryChargeCents,
			Currency:            cfg.Pricing.Currency,
			PendingExpiry:       time.Duration(cfg.Orders.PendingExpiryHours) * time.Hour,
			ReminderLead:        time.Duration(cfg.Orders.ReminderLeadHours) * time.Hour,
		},
	)
	a.Jobs = jobs.NewJobRunner(a.Orders, cfg)
	return a, nil
}

// AuthLimiter throttles login and registration per client IP.
func (a *App) AuthLimiter() limiter.Limiter {
	attempts, window := a.Config.RateLimit.AuthAttempts, a.Config.AuthRateWindow()
	if a.Redis != nil {
		return limiter.NewRedisLimiter(a.Redis, "auth", attempts, window)
	}
	return limiter.NewMemoryLimiter(attempts, window)
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		logger.Warn("Failed to close database", "error", err)
	}
}
