// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pharmstock/internal/domain/auth"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/domain/purchase"
	"pharmstock/internal/domain/sales"
	"pharmstock/internal/infrastructure/http/v1/handlers"
	"pharmstock/internal/infrastructure/http/v1/middleware"
	"pharmstock/internal/infrastructure/storage/postgres"
	"pharmstock/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	// Pool is the database pool, nil in memory mode. Used by health checks.
	Pool *postgres.Pool

	Logger  *logger.Logger
	Version string

	TokenValidator middleware.TokenValidator

	AuthService     *auth.Service
	CatalogService  *catalog.Service
	LedgerService   *ledger.Service
	PurchaseService *purchase.Service
	SalesService    *sales.Service
	Pricing         *pricing.Calculator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
	itemHandler := handlers.NewItemHandler(base, cfg.CatalogService, cfg.Pricing)
	stockHandler := handlers.NewStockHandler(base, cfg.LedgerService)
	orderHandler := handlers.NewPurchaseOrderHandler(base, cfg.PurchaseService)
	saleHandler := handlers.NewSaleHandler(base, cfg.SalesService)

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/auth/login", authHandler.Login)

		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.TokenValidator))

		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/register", middleware.RequireAdmin(), authHandler.Register)

		items := protected.Group("/items")
		{
			items.POST("", itemHandler.Create)
			items.GET("", itemHandler.List)
			items.GET("/low-stock", itemHandler.LowStock)
			items.GET("/:id", itemHandler.Get)
			items.PUT("/:id", itemHandler.Update)
			items.GET("/:id/pricing", itemHandler.Pricing)

			items.POST("/:id/movements", stockHandler.Apply)
			items.GET("/:id/movements", stockHandler.History)
			items.GET("/:id/stock", stockHandler.Current)
			items.GET("/:id/stock/breakdown", stockHandler.Breakdown)
			items.POST("/:id/stock/rebuild", middleware.RequireAdmin(), stockHandler.Rebuild)
		}

		movements := protected.Group("/movements")
		{
			movements.GET("/:id", stockHandler.GetMovement)
			movements.POST("/:id/void", middleware.RequireAdmin(), stockHandler.Void)
		}

		orders := protected.Group("/purchase-orders")
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.PUT("/:id/lines", orderHandler.UpdateLines)
			orders.POST("/:id/submit", orderHandler.Submit)
			orders.POST("/:id/approve", orderHandler.Approve)
			orders.POST("/:id/cancel", orderHandler.Cancel)
			orders.POST("/:id/receive", orderHandler.Receive)
		}

		protected.POST("/sales", saleHandler.Apply)
	}

	return router
}
