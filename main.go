// Package main provides the main entry point for the counter web application
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/counter-app/app/handlers"
	"github.com/amirphl/counter-app/app/router"
	"github.com/amirphl/counter-app/app/scheduler"
	"github.com/amirphl/counter-app/app/services"
	"github.com/amirphl/counter-app/app/views"
	businessflow "github.com/amirphl/counter-app/business_flow"
	"github.com/amirphl/counter-app/config"
	"github.com/amirphl/counter-app/database"
	"github.com/amirphl/counter-app/logging"
	"github.com/amirphl/counter-app/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	db        *gorm.DB
	cache     *redis.Client
	logCloser io.Closer
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	log.Logger = logger

	log.Info().
		Str("version", cfg.Deployment.Version).
		Str("environment", cfg.Deployment.Environment).
		Str("commit", cfg.Deployment.CommitHash).
		Msg("Starting counter application...")

	// Initialize application
	app, err := initializeApplication(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	app.logCloser = logCloser

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	app.shutdown()
	log.Info().Msg("Server stopped")
}

// shutdown stops background workers, drains the server and releases the store handles
func (a *Application) shutdown() {
	for _, fn := range a.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}

	if err := database.Close(a.db); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// initializeDatabase opens the store with connection pooling and applies the schema if configured
func initializeDatabase(cfg config.DatabaseConfig, logger zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg, database.Options{
		Logger: logging.NewGormLogger(logger, cfg.SlowQueryLog, cfg.SlowQueryTime),
	})
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}

	logger.Info().
		Str("driver", cfg.Driver).
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("Database connection established")

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger zerolog.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", opt.Addr).Int("db", cfg.RedisDB).Msg("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger zerolog.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn().Err(err).Msg("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger zerolog.Logger) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	checks := map[string]router.HealthChecker{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	// Counter views live in Redis when it is configured, otherwise in process memory
	var viewStore services.ViewStateStore
	if rc != nil {
		viewStore = services.NewRedisViewStateStore(rc, cfg.Cache.RedisPrefix, cfg.Counter.ViewTTL)
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger))
		checks["view_store"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	} else {
		memStore := services.NewMemoryViewStateStore(cfg.Counter.ViewTTL)
		janitor := scheduler.NewViewJanitor(memStore, cfg.Cache.CleanupInterval, logger)
		stopFuncs = append(stopFuncs, janitor.Start(context.Background()))
		viewStore = memStore
	}

	renderer, err := views.NewRenderer()
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	// Initialize repositories
	counterRepo := repository.NewCounterRepository(db)

	// Initialize flows
	counterFlow := businessflow.NewCounterFlow(counterRepo, viewStore, cfg.Counter, logger)

	// Initialize handlers
	pageHandler := handlers.NewPageHandler(counterFlow, renderer, cfg.Counter.Name, logger)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, pageHandler, renderer, checks, logger)

	return &Application{
		router:    appRouter,
		config:    cfg,
		db:        db,
		cache:     rc,
		stopFuncs: stopFuncs,
	}, nil
}
