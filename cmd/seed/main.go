// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"pharmstock/internal/config"
	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/auth"
	"pharmstock/internal/domain/catalog"
	itemcache "pharmstock/internal/infrastructure/cache"
	"pharmstock/internal/infrastructure/storage/postgres"
	"pharmstock/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.ConnectionString()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	userRepo := postgres.NewUserRepo(txManager)
	itemRepo := postgres.NewItemRepo(txManager)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := auth.NewService(userRepo, txManager, jwtService, auth.DefaultServiceConfig())

	if err := seedAdminUser(ctx, authService, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		catalogService := catalog.NewService(itemRepo, itemcache.Noop{}, txManager)
		if err := seedDemoItems(ctx, catalogService, log); err != nil {
			log.Fatalw("failed to seed demo items", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, authService *auth.Service, log *logger.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123!"
	}

	user, err := authService.Register(ctx, username, password, true)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
			log.Infow("admin user already exists", "username", username)
			return nil
		}
		return err
	}

	log.Infow("admin user created", "username", username, "user_id", user.ID)
	return nil
}

func seedDemoItems(ctx context.Context, catalogService *catalog.Service, log *logger.Logger) error {
	log.Info("seeding demo items...")

	demo := []*catalog.Item{
		demoItem("Paracetamol 500mg", "paracetamol", 200, "450.00", []catalog.PackagingUnit{
			{Label: "tablet", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("7.00")},
			{Label: "strip", BaseUnitsPerPackage: 10, SellingPricePerPackage: types.MustMoney("65.00")},
			{Label: "box", BaseUnitsPerPackage: 100, SellingPricePerPackage: types.MustMoney("600.00")},
		}),
		demoItem("Amoxicillin 250mg", "amoxicillin", 100, "800.00", []catalog.PackagingUnit{
			{Label: "capsule", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("12.00")},
			{Label: "strip", BaseUnitsPerPackage: 10, SellingPricePerPackage: types.MustMoney("110.00")},
			{Label: "box", BaseUnitsPerPackage: 100, SellingPricePerPackage: types.MustMoney("1050.00")},
		}),
		demoItem("Cough Syrup 100ml", "dextromethorphan", 20, "150.00", []catalog.PackagingUnit{
			{Label: "bottle", BaseUnitsPerPackage: 1, SellingPricePerPackage: types.MustMoney("200.00")},
		}),
	}

	for _, item := range demo {
		if err := catalogService.Create(ctx, item); err != nil {
			return fmt.Errorf("create %q: %w", item.Name, err)
		}
		log.Infow("demo item created", "name", item.Name, "item_id", item.ID)
	}
	return nil
}

func demoItem(name, generic string, reorder int64, cost string, units []catalog.PackagingUnit) *catalog.Item {
	item := catalog.NewItem(name, units)
	item.GenericName = generic
	item.ReorderThreshold = reorder
	item.CostPricePerPack = types.MustMoney(cost)
	return item
}
