package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/order-inventory-saga/internal/order/application"
	orderhttp "github.com/dmehra2102/order-inventory-saga/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/order-inventory-saga/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/order-inventory-saga/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/order-inventory-saga/migrations"
	"github.com/dmehra2102/order-inventory-saga/pkg/clock"
	"github.com/dmehra2102/order-inventory-saga/pkg/config"
	"github.com/dmehra2102/order-inventory-saga/pkg/idempotency"
	"github.com/dmehra2102/order-inventory-saga/pkg/logging"
	"github.com/dmehra2102/order-inventory-saga/pkg/messaging"
	"github.com/dmehra2102/order-inventory-saga/pkg/metrics"
	"github.com/dmehra2102/order-inventory-saga/pkg/outbox"
	"github.com/dmehra2102/order-inventory-saga/pkg/shutdown"
	"github.com/dmehra2102/order-inventory-saga/pkg/tracing"
)

const serviceName = "order-service"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv load failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.LoadOrder()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(serviceName, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("order-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("order-service shutdown complete")
}

func run(ctx context.Context, cfg *config.Order, log *slog.Logger) error {
	tp, err := tracing.Init(ctx, serviceName, cfg.JaegerURL, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("pg connect: %w", err)
	}
	defer pool.Close()
	if err := migrations.Apply(ctx, pool, migrations.Order); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, offset dedupe degraded", "addr", cfg.RedisAddr, "err", err)
	}

	// Kafka
	writer := messaging.NewWriter(cfg.Brokers)
	defer writer.Close()

	repo := orderpg.NewRepository(log, pool)
	svc := application.NewService(log, repo, clock.NewSystem())

	hostname, _ := os.Hostname()
	store := outbox.NewPostgresStore(log, pool, cfg.OutboxMaxRetries)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutTopic)
	relay := outbox.NewRelay(log, store, dispatch, serviceName+"-relay-"+hostname,
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithInterval(cfg.OutboxInterval),
		outbox.WithLease(cfg.OutboxLease),
	)

	outcomes := orderkafka.NewOutcomeHandler(log, svc)
	consumer := messaging.NewConsumer("inventory-validated", log,
		messaging.NewReader(cfg.Brokers, cfg.InTopic, cfg.ConsumerGroup),
		outcomes.Handle,
		messaging.WithLanes(cfg.ConsumerLanes),
		messaging.WithRetry(messaging.RetryPolicy{MaxRetries: cfg.RetryMax, Initial: cfg.RetryInterval, Max: cfg.RetryMaxBackoff}),
		messaging.WithDeadLetter(messaging.NewDeadLetterPublisher(log, writer)),
		messaging.WithDeduper(idempotency.NewStore(rdb, cfg.IdempotencyTTL)),
	)
	dlqLogger := messaging.NewDeadLetterLogger(log.With("component", "dlq"),
		messaging.NewReader(cfg.Brokers, messaging.DeadLetterTopic(cfg.InTopic), cfg.ConsumerGroup+"-dlq"))

	// HTTP
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/healthz", healthz(pool))
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", orderhttp.NewHandler(log, svc).Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return dlqLogger.Run(gctx) })
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
