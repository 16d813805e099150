package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/storefront/internal/config"
	"github.com/georgemunganga/storefront/internal/database"
	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/catalog"
	"github.com/georgemunganga/storefront/internal/modules/checkout"
	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/modules/notify"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/georgemunganga/storefront/internal/modules/status"
	"github.com/georgemunganga/storefront/internal/modules/user"
	"github.com/georgemunganga/storefront/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := observability.InitLogger("storefront-api", "info", true)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	logger := observability.InitLogger("storefront-api", cfg.LogLevel, cfg.LogConsole)
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	logger.Info().Msg("database ready")

	notifier := notify.Multi{notify.NewLogNotifier(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers), cfg.KafkaTopicPrefix, logger)
		defer kafkaNotifier.Close()
		notifier = append(notifier, kafkaNotifier)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Msg("kafka notifications enabled")
	}

	queue, err := openQueue(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open fulfillment queue")
	}

	// ── Catalog & Identity ──────────────────────────────────
	var products catalog.Repository = catalog.NewPostgresRepository(db)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		products = catalog.NewCachedRepository(products, rdb, cfg.CatalogCacheTTL, logger)
		logger.Info().Dur("ttl", cfg.CatalogCacheTTL).Msg("catalog cache enabled")
	}
	catalogHandler := catalog.NewHandler(catalog.NewService(products))

	userRepo := user.NewPostgresRepository(db)
	userHandler := user.NewHandler(user.NewService(userRepo))
	authHandler := auth.NewHandler(auth.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL))

	// ── Inventory & Cart ────────────────────────────────────
	ledger := inventory.NewPostgresLedger(db, cfg.LowStockThreshold)
	inventoryHandler := inventory.NewHandler(inventory.NewService(ledger, notifier, cfg.LowStockThreshold))

	cartRepo := cart.NewPostgresRepository(db)
	cartHandler := cart.NewHandler(cart.NewService(cartRepo, products, cfg.TaxRate))

	// ── Orders, Checkout & Status ───────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo)
	failures := fulfillment.NewPostgresFailureLog(db)

	checkoutService := checkout.NewService(cartRepo, orderRepo, queue, failures, notifier,
		checkout.Config{TaxRate: cfg.TaxRate, DefaultCountry: cfg.DefaultCountry}, logger)
	publisher := status.NewPublisher(orderRepo, status.Config{
		PollInterval: cfg.Status.PollInterval,
		MaxPolls:     cfg.Status.MaxPolls,
	})

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(observability.RequestLogger(logger))
	router.Use(observability.RequestMetrics)

	router.Get("/healthz", healthz(db))
	router.Handle("/metrics", observability.MetricsHandler())

	authHandler.RegisterRoutes(router)
	userHandler.RegisterRoutes(router)
	catalogHandler.RegisterRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		userHandler.RegisterAuthenticatedRoutes(r, auth.UserID)
		cartHandler.RegisterRoutes(r)
		checkout.NewHandler(checkoutService).RegisterRoutes(r)
		order.NewHandler(orderService).RegisterRoutes(r)
		status.NewHandler(orderService, publisher, logger).RegisterRoutes(r)
		inventoryHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			inventoryHandler.RegisterAdminRoutes(r)
			catalogHandler.RegisterAdminRoutes(r)
			fulfillment.NewHandler(failures).RegisterRoutes(r)
		})
	})

	// Status streams clear their own write deadline.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// The pool outlives the http server so checkouts accepted during
	// shutdown are still consumed.
	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down http server")
		err := server.Shutdown(shutdownCtx)
		stopPool()
		return err
	})

	inProcess := cfg.Fulfillment.QueueDriver == config.QueueMemory || cfg.Fulfillment.InProcess
	if inProcess {
		worker := fulfillment.NewWorker(fulfillment.NewPostgresStore(db, cfg.LowStockThreshold), failures, notifier,
			fulfillment.Config{
				Attempts:       cfg.Fulfillment.Attempts,
				AttemptTimeout: cfg.Fulfillment.AttemptTimeout,
				RetryDelay:     cfg.Fulfillment.RetryDelay,
			}, logger)
		pool := fulfillment.NewPool(queue, worker, cfg.Fulfillment.Concurrency, logger)
		g.Go(func() error { return pool.Run(poolCtx) })
	}

	err = g.Wait()
	if cerr := queue.Close(); cerr != nil {
		logger.Warn().Err(cerr).Msg("close fulfillment queue")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("storefront api stopped")
	}
	logger.Info().Msg("storefront api stopped")
}

func openQueue(ctx context.Context, cfg config.Config, logger zerolog.Logger) (fulfillment.Queue, error) {
	if cfg.Fulfillment.QueueDriver == config.QueueRabbitMQ {
		q, err := fulfillment.DialRabbit(ctx, cfg.Fulfillment.AMQPURL, cfg.Fulfillment.QueueName, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return fulfillment.NewMemoryQueue(cfg.Fulfillment.QueueBuffer), nil
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}
}
