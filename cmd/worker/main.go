package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aibets/predictor/internal/cache"
	"aibets/predictor/internal/client"
	"aibets/predictor/internal/config"
	"aibets/predictor/internal/ingest"
	"aibets/predictor/internal/llm"
	"aibets/predictor/internal/logger"
	"aibets/predictor/internal/metrics"
	"aibets/predictor/internal/prediction"
	"aibets/predictor/internal/repository"
	"aibets/predictor/internal/scheduler"
	"aibets/predictor/internal/server"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.SetupFromEnv()

	log.Info().Msg("Starting AI Bets prediction worker")

	cfg := config.MustLoad()
	// .env may have changed the level
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("model", cfg.OpenAIModel).
		Ints("prediction_leagues", cfg.PredictionLeagueIDs).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	db, err := repository.NewDatabase(ctx, cfg.Database())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	if cfg.DatabaseAutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	football := client.NewClient(cfg.FootballBaseURL, cfg.FootballAPIKey, cfg.FootballTimeout).
		WithTimezone(cfg.FootballTimezone)
	log.Info().Msg("API-Football client initialized")

	// Redis backs the response cache and the batch lock; both are optional
	redisCache, err := cache.NewRedisCache(cfg.Redis())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
		football.WithCache(redisCache, cfg.OddsCacheTTL(), cfg.StatsCacheTTL())
		log.Info().Msg("Redis cache connected")
	}

	model := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	generator := prediction.NewGenerator(football, model, db.Predictions, model.Model())

	batch := prediction.NewBatch(football, db.Predictions, generator, prediction.BatchConfig{
		LeagueIDs: cfg.PredictionLeagueIDs,
		DaysAhead: cfg.PredictionDaysAhead,
		Delay:     cfg.PredictionDelay,
		LockTTL:   cfg.BatchLockTTL,
	})
	if redisCache != nil {
		batch.WithLocker(redisCache)
	}

	fixtureSync := ingest.NewFixtureSync(football, db.Fixtures, ingest.Config{
		LeagueIDs: cfg.SyncLeagueIDs,
		DaysAhead: cfg.SyncDaysAhead,
		BatchSize: cfg.SyncBatchSize,
	})

	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
		go reportSystemStats(ctx, db)
	}

	sched := scheduler.NewScheduler(scheduler.Config{
		DailyUpdateCron: cfg.DailyUpdateCron,
		SyncInterval:    cfg.FixtureSyncInterval,
	}, fixtureSync, batch)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	api := server.New(server.Config{
		Port:           cfg.HTTPPort,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		CronSecret:     cfg.CronSecret,
		DevMode:        cfg.IsDevelopment(),
		JobContext:     ctx,
		Health:         db,
		Generator:      generator,
		Predictions:    db.Predictions,
		Fixtures:       db.Fixtures,
		Daily:          sched,
	})

	go func() {
		if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	// Keep running until context is cancelled
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// reportSystemStats refreshes uptime and pool gauges
func reportSystemStats(ctx context.Context, db *repository.Database) {
	startTime := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			db.ReportPoolStats()
		case <-ctx.Done():
			return
		}
	}
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
