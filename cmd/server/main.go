// Package main is the entry point for the pharmstock API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pharmstock/internal/config"
	"pharmstock/internal/domain/auth"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/domain/purchase"
	"pharmstock/internal/domain/sales"
	"pharmstock/internal/domain/units"
	itemcache "pharmstock/internal/infrastructure/cache"
	v1 "pharmstock/internal/infrastructure/http/v1"
	"pharmstock/internal/infrastructure/storage/postgres"
	"pharmstock/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting pharmstock server", "env", cfg.App.Env, "version", version)

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.ConnectionString()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	itemRepo := postgres.NewItemRepo(txManager)
	movementRepo := postgres.NewMovementRepo(txManager)
	purchaseRepo := postgres.NewPurchaseRepo(txManager)
	userRepo := postgres.NewUserRepo(txManager)

	// --- Item cache (optional) ---
	var cache catalog.Cache = itemcache.Noop{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		itemCache := itemcache.NewItemCache(redisClient, cfg.Redis.TTL)
		if err := itemCache.Ping(ctx); err != nil {
			log.Warnw("redis unavailable, continuing without item cache", "error", err)
		} else {
			cache = itemCache
			log.Infow("item cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	// --- Correction archive ---
	archive, err := postgres.NewCorrectionArchive(txManager)
	if err != nil {
		log.Fatalw("failed to initialize correction archive", "error", err)
	}

	// --- Domain services ---
	converter := units.NewConverter(cfg.Inventory.StrictUnits)
	calc := pricing.NewCalculator(cfg.Inventory.DefaultMarkup)

	catalogService := catalog.NewService(itemRepo, cache, txManager)
	ledgerService := ledger.NewService(movementRepo, itemRepo, converter, calc, ledger.NewGuard(), txManager, archive)
	purchaseService := purchase.NewService(purchaseRepo, ledgerService, txManager)
	salesService := sales.NewService(ledgerService, txManager)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := auth.NewService(userRepo, txManager, jwtService, auth.DefaultServiceConfig())

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:            pool,
		Logger:          log,
		Version:         version,
		TokenValidator:  jwtService,
		AuthService:     authService,
		CatalogService:  catalogService,
		LedgerService:   ledgerService,
		PurchaseService: purchaseService,
		SalesService:    salesService,
		Pricing:         calc,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
