package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tire-shop/internal/config"
	"tire-shop/internal/database"
	"tire-shop/internal/logger"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up|down|status")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = database.RunMigrations(db, log)
	case "down":
		err = database.RollbackMigration(db, log)
	case "status":
		err = database.GetMigrationStatus(db)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}
