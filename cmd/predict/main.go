// Command predict runs the prediction jobs once from the command line.
//
//	predict -fixture 1035037   generate a prediction for one fixture
//	predict -all               run a batch pass over upcoming fixtures
//	predict -sync              sync upcoming fixtures into the database
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aibets/predictor/internal/cache"
	"aibets/predictor/internal/client"
	"aibets/predictor/internal/config"
	"aibets/predictor/internal/ingest"
	"aibets/predictor/internal/llm"
	"aibets/predictor/internal/logger"
	"aibets/predictor/internal/prediction"
	"aibets/predictor/internal/repository"

	"github.com/rs/zerolog/log"
)

func main() {
	fixtureID := flag.Int("fixture", 0, "generate a prediction for this fixture id")
	all := flag.Bool("all", false, "generate predictions for all upcoming fixtures without one")
	syncFixtures := flag.Bool("sync", false, "sync upcoming fixtures into the database")
	flag.Parse()

	if *fixtureID <= 0 && !*all && !*syncFixtures {
		fmt.Fprintln(os.Stderr, "usage: predict -fixture <id> | -all | -sync")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger.SetupFromEnv()
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *fixtureID, *all, *syncFixtures); err != nil {
		log.Error().Err(err).Msg("Run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, fixtureID int, all, syncFixtures bool) error {
	db, err := repository.NewDatabase(ctx, cfg.Database())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.DatabaseAutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	football := client.NewClient(cfg.FootballBaseURL, cfg.FootballAPIKey, cfg.FootballTimeout).
		WithTimezone(cfg.FootballTimezone)

	redisCache, err := cache.NewRedisCache(cfg.Redis())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
		football.WithCache(redisCache, cfg.OddsCacheTTL(), cfg.StatsCacheTTL())
	}

	if syncFixtures {
		summary, err := ingest.NewFixtureSync(football, db.Fixtures, ingest.Config{
			LeagueIDs: cfg.SyncLeagueIDs,
			DaysAhead: cfg.SyncDaysAhead,
			BatchSize: cfg.SyncBatchSize,
		}).Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Fixtures synced: %d processed, %d errors\n", summary.Processed, summary.Errors)
	}

	model := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	generator := prediction.NewGenerator(football, model, db.Predictions, model.Model())

	if fixtureID > 0 {
		id, err := generator.Generate(ctx, fixtureID)
		if err != nil {
			return fmt.Errorf("prediction for fixture %d: %w", fixtureID, err)
		}
		fmt.Printf("Prediction %d stored for fixture %d\n", id, fixtureID)
	}

	if all {
		batch := prediction.NewBatch(football, db.Predictions, generator, prediction.BatchConfig{
			LeagueIDs: cfg.PredictionLeagueIDs,
			DaysAhead: cfg.PredictionDaysAhead,
			Delay:     cfg.PredictionDelay,
			LockTTL:   cfg.BatchLockTTL,
		})
		if redisCache != nil {
			batch.WithLocker(redisCache)
		}

		summary, err := batch.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Batch complete: %d total, %d generated, %d skipped, %d failed\n",
			summary.Total, summary.Generated, summary.Skipped, summary.Failed)
	}

	return nil
}
