package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"tire-shop/internal/config"
	"tire-shop/internal/events"
	custommiddleware "tire-shop/internal/middleware"
	"tire-shop/internal/realtime"
	"tire-shop/internal/repository"
	"tire-shop/internal/search"
	"tire-shop/internal/service"
	"tire-shop/internal/storage"
	"tire-shop/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	healthTimeout  = 2 * time.Second
	reindexTimeout = time.Minute
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	store   *repository.Store
	hub     *realtime.Hub
	closers []func() error
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, store *repository.Store) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logger,
		store:  store,
		hub:    realtime.NewHub(store.Products, logger),
	}

	// Catalog services
	productOpts, err := s.catalogOptions(ctx)
	if err != nil {
		return nil, err
	}
	products := service.NewProductService(store.Products, logger, productOpts...)
	carts := service.NewCartService(store.Carts, store.Products, logger)
	sessions := service.NewSessionService(store.Users, carts, service.SessionConfig{
		Secret:      cfg.JWT.Secret,
		Expiry:      cfg.JWT.Expiry,
		AdminEmails: cfg.Admin.Emails,
	}, logger)

	thumbnails, err := storage.New(cfg.Storage)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("failed to initialize thumbnail storage: %w", err)
	}

	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, !cfg.Server.IsProduction()))
	if limiter := s.rateLimiter(); limiter != nil {
		router.Use(limiter)
	}

	router.Get("/health", s.health)

	if local, ok := thumbnails.(*storage.LocalStore); ok {
		prefix := "/" + strings.Trim(cfg.Storage.BaseURL, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir()))))
	}

	socketOrigins := cfg.CORS.AllowedOrigins
	if !cfg.Server.IsProduction() {
		socketOrigins = nil
	}
	router.Handle("/ws", realtime.NewHandler(s.hub, products, sessions, socketOrigins, logger,
		realtime.WithAdminWrites(cfg.Admin.WritesOnly)))

	authMiddleware := custommiddleware.AuthMiddleware(sessions, logger)
	var writeGuards []func(http.Handler) http.Handler
	if cfg.Admin.WritesOnly {
		writeGuards = append(writeGuards, authMiddleware, custommiddleware.RequireAdmin(logger))
	}
	transport.NewCartHandler(carts, logger).RegisterRoutes(router)
	transport.NewProductHandler(products, thumbnails, cfg.Storage.MaxFileSize, logger).
		RegisterRoutes(router, writeGuards...)
	transport.NewSessionHandler(sessions, logger).RegisterRoutes(router, authMiddleware)

	router.NotFound(transport.NotFoundHandler(logger))

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// catalogOptions wires the optional catalog collaborators: the socket hub
// always, Kafka and Elasticsearch when configured.
func (s *Server) catalogOptions(ctx context.Context) ([]service.ProductOption, error) {
	observers := []service.CatalogObserver{s.hub}
	var opts []service.ProductOption

	if len(s.config.Kafka.Brokers) > 0 {
		publisher := events.NewPublisher(s.config.Kafka.Brokers, s.config.Kafka.Topic, s.logger)
		observers = append(observers, publisher)
		s.closers = append(s.closers, publisher.Close)
		s.logger.Info("Publishing catalog events",
			zap.Strings("brokers", s.config.Kafka.Brokers),
			zap.String("topic", s.config.Kafka.Topic),
		)
	}

	if s.config.Search.URL != "" {
		client, err := search.NewClient(s.config.Search, nil)
		if err != nil {
			s.closeAll()
			return nil, err
		}
		index := search.NewIndex(client, s.config.Search.Index, s.logger)
		if err := index.EnsureIndex(ctx); err != nil {
			s.closeAll()
			return nil, err
		}
		s.reindex(ctx, index)
		observers = append(observers, index)
		opts = append(opts, service.WithSearcher(index))
	}

	return append(opts, service.WithObservers(observers...)), nil
}

func (s *Server) reindex(ctx context.Context, index *search.Index) {
	ctx, cancel := context.WithTimeout(ctx, reindexTimeout)
	defer cancel()

	products, err := s.store.Products.All(ctx)
	if err == nil {
		err = index.Reindex(ctx, products)
	}
	if err != nil {
		s.logger.Warn("Search index may be stale", zap.Error(err))
	}
}

func (s *Server) rateLimiter() func(http.Handler) http.Handler {
	if s.config.RateLimit.Requests <= 0 {
		return nil
	}
	limits := custommiddleware.RateLimitConfig{
		RequestsPerWindow: s.config.RateLimit.Requests,
		Window:            s.config.RateLimit.Window,
		KeyPrefix:         "ratelimit",
	}
	if !s.config.Redis.Enabled() {
		return custommiddleware.LocalRateLimitMiddleware(limits, s.logger)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(s.config.Redis.Host, s.config.Redis.Port),
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})
	s.closers = append(s.closers, rdb.Close)
	return custommiddleware.RateLimitMiddleware(rdb, limits, s.logger)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"store":       s.config.Store.Driver,
		"connections": s.hub.Count(),
	})
}

func (s *Server) closeAll() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}
	s.closers = nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.hub.Close()
	s.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
