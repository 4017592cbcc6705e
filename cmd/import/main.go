package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tire-shop/internal/config"
	"tire-shop/internal/database"
	"tire-shop/internal/importer"
	"tire-shop/internal/logger"
	"tire-shop/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "products.json", "JSON array of products to upsert by code")
	envFile := flag.String("env", "", "optional env file loaded before configuration")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	if err := run(cfg, *file, log); err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}
}

func run(cfg *config.Config, path string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	store, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	products := service.NewProductService(store.Products, log)
	sum, err := importer.NewImporter(products, log).Import(ctx, f)
	if err != nil {
		return err
	}

	fmt.Printf("created=%d updated=%d failed=%d\n", sum.Created, sum.Updated, sum.Failed)
	return nil
}
