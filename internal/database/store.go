package database

import (
	"context"
	"fmt"

	"tire-shop/internal/config"
	"tire-shop/internal/repository"
	"tire-shop/internal/repository/localstore"
	"tire-shop/internal/repository/mongostore"
	"tire-shop/internal/repository/pgstore"

	"go.uber.org/zap"
)

// OpenStore connects the backend named by cfg.Store.Driver and returns its repositories.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case "mongo":
		return openMongoStore(ctx, cfg, logger)
	case "postgres":
		return openPostgresStore(ctx, cfg, logger)
	case "local":
		return openLocalStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openMongoStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, error) {
	client, err := ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.Mongo.Database)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", cfg.Mongo.Database),
		zap.Uint64("max_pool_size", cfg.Mongo.MaxPoolSize),
	)

	return &repository.Store{
		Products: mongostore.NewProductRepository(db),
		Carts:    mongostore.NewCartRepository(db),
		Users:    mongostore.NewUserRepository(db),
		Close:    client.Disconnect,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	}, nil
}

func openPostgresStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, error) {
	db, err := OpenPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	logger.Info("Database health check", zap.Any("health", Health(ctx, db)))

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &repository.Store{
		Products: pgstore.NewProductRepository(db),
		Carts:    pgstore.NewCartRepository(db),
		Users:    pgstore.NewUserRepository(db),
		Close: func(context.Context) error {
			return db.Close()
		},
		Ping: db.PingContext,
	}, nil
}

func openLocalStore(cfg *config.Config, logger *zap.Logger) (*repository.Store, error) {
	db, err := localstore.Open(cfg.Local.DataDir)
	if err != nil {
		return nil, err
	}

	if cfg.Local.DataDir == "" {
		logger.Warn("Using in-memory store; data is lost on restart")
	} else {
		logger.Info("Using local file store", zap.String("dir", cfg.Local.DataDir))
	}

	return &repository.Store{
		Products: localstore.NewProductRepository(db),
		Carts:    localstore.NewCartRepository(db),
		Users:    localstore.NewUserRepository(db),
		Close:    func(context.Context) error { return nil },
		Ping:     func(context.Context) error { return nil },
	}, nil
}
