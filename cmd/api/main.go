package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfer-settlement-service/config"
	"transfer-settlement-service/internal/adapter/enrichment"
	httpHandler "transfer-settlement-service/internal/adapter/http/handler"
	kafkaAdapter "transfer-settlement-service/internal/adapter/kafka"
	pgStorage "transfer-settlement-service/internal/adapter/storage/postgres"
	redisStorage "transfer-settlement-service/internal/adapter/storage/redis"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/internal/service"
	"transfer-settlement-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("topic", cfg.Kafka.Topic).
		Msg("Starting Transfer Settlement Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	dedupRepo := pgStorage.NewDedupRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	dedupCache := redisStorage.NewDedupCache(rdb)

	// Initialize enrichment client
	incentiveClient := enrichment.NewClient(cfg.Incentive, log)

	// Initialize business services
	settlementSvc := service.NewSettlementService(
		accountRepo,
		ledgerRepo,
		dedupRepo,
		dedupCache,
		incentiveClient,
		transactor,
		log,
	)
	balanceSvc := service.NewBalanceService(accountRepo, ledgerRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Start the Kafka consumer
	reader := kafkaAdapter.NewReader(cfg.Kafka)
	deadLetter := kafkaAdapter.NewDeadLetterWriter(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
	consumer := kafkaAdapter.NewSettlementConsumer(reader, settlementSvc, deadLetter, cfg.Consumer, log)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumerDone := make(chan error, 1)
	go func() {
		log.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("group_id", cfg.Kafka.GroupID).
			Msg("Kafka consumer started")
		consumerDone <- consumer.Run(consumerCtx)
	}()

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		BalanceSvc:     balanceSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	// Stop consuming first so no settlement is in flight when the stores close.
	stopConsumer()
	select {
	case err := <-consumerDone:
		if err != nil {
			log.Error().Err(err).Msg("Consumer stopped with error")
		}
	case <-time.After(10 * time.Second):
		log.Error().Msg("Consumer did not stop in time")
	}
	if err := reader.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Kafka reader")
	}
	if err := deadLetter.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close dead-letter writer")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
