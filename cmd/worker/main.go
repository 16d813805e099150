package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/storefront/internal/config"
	"github.com/georgemunganga/storefront/internal/database"
	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/modules/notify"
	"github.com/georgemunganga/storefront/internal/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to a TOML config file")
	metricsAddr := flag.String("metrics-addr", ":9091", "address serving /metrics")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := observability.InitLogger("storefront-worker", "info", true)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	logger := observability.InitLogger("storefront-worker", cfg.LogLevel, cfg.LogConsole)
	if cfg.Fulfillment.QueueDriver != config.QueueRabbitMQ {
		logger.Fatal().Str("driver", cfg.Fulfillment.QueueDriver).
			Msg("the standalone worker needs QUEUE_DRIVER=rabbitmq; the memory queue runs inside the api")
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

	notifier := notify.Multi{notify.NewLogNotifier(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers), cfg.KafkaTopicPrefix, logger)
		defer kafkaNotifier.Close()
		notifier = append(notifier, kafkaNotifier)
	}

	queue, err := fulfillment.DialRabbit(ctx, cfg.Fulfillment.AMQPURL, cfg.Fulfillment.QueueName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect rabbitmq")
	}
	defer queue.Close()

	worker := fulfillment.NewWorker(
		fulfillment.NewPostgresStore(db, cfg.LowStockThreshold),
		fulfillment.NewPostgresFailureLog(db),
		notifier,
		fulfillment.Config{
			Attempts:       cfg.Fulfillment.Attempts,
			AttemptTimeout: cfg.Fulfillment.AttemptTimeout,
			RetryDelay:     cfg.Fulfillment.RetryDelay,
		},
		logger,
	)
	pool := fulfillment.NewPool(queue, worker, cfg.Fulfillment.Concurrency, logger)

	metrics := &http.Server{
		Addr:              *metricsAddr,
		Handler:           observability.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error {
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metrics.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("storefront worker stopped")
		os.Exit(1)
	}
	logger.Info().Msg("storefront worker stopped")
}
