// Package ingest keeps the fixtures table in step with API-Football.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aibets/predictor/internal/metrics"
	"aibets/predictor/internal/models"

	"github.com/rs/zerolog/log"
)

// FixtureSource lists upcoming fixtures
type FixtureSource interface {
	GetUpcomingFixtures(ctx context.Context, leagueIDs []int, daysAhead int) ([]models.FixtureResponse, error)
}

// FixtureWriter upserts fixture rows
type FixtureWriter interface {
	Upsert(ctx context.Context, f *models.Fixture) error
}

// Config controls one sync pass
type Config struct {
	LeagueIDs []int
	DaysAhead int
	BatchSize int
}

// Summary is the outcome of one sync pass
type Summary struct {
	Processed int   `json:"processed"`
	Errors    int   `json:"errors"`
	LeagueIDs []int `json:"league_ids"`
}

// FixtureSync pulls upcoming fixtures and upserts them in batches
type FixtureSync struct {
	source FixtureSource
	writer FixtureWriter
	cfg    Config
}

// NewFixtureSync creates a sync job
func NewFixtureSync(source FixtureSource, writer FixtureWriter, cfg Config) *FixtureSync {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	return &FixtureSync{source: source, writer: writer, cfg: cfg}
}

// Run performs one sync pass.
// Writes within a batch run concurrently and every write is attempted even if siblings fail.
func (s *FixtureSync) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{LeagueIDs: s.cfg.LeagueIDs}

	log.Info().Ints("league_ids", s.cfg.LeagueIDs).Int("days_ahead", s.cfg.DaysAhead).Msg("Fetching fixtures")

	fixtures, err := s.source.GetUpcomingFixtures(ctx, s.cfg.LeagueIDs, s.cfg.DaysAhead)
	if err != nil {
		metrics.RecordSync("fixtures", "failed", time.Since(start).Seconds())
		return summary, fmt.Errorf("failed to fetch upcoming fixtures: %w", err)
	}

	log.Info().Int("count", len(fixtures)).Msg("Upcoming fixtures fetched")

	batches := (len(fixtures) + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		lo := i * s.cfg.BatchSize
		hi := lo + s.cfg.BatchSize
		if hi > len(fixtures) {
			hi = len(fixtures)
		}

		ok, failed := s.upsertBatch(ctx, fixtures[lo:hi])
		summary.Processed += ok
		summary.Errors += failed

		log.Debug().
			Int("batch", i+1).
			Int("batches", batches).
			Int("processed", ok).
			Int("errors", failed).
			Msg("Fixture batch written")
	}

	status := "success"
	if summary.Errors > 0 {
		status = "partial"
	}
	metrics.RecordSync("fixtures", status, time.Since(start).Seconds())
	metrics.FixturesSynced.Set(float64(summary.Processed))

	log.Info().
		Int("processed", summary.Processed).
		Int("errors", summary.Errors).
		Dur("duration", time.Since(start)).
		Msg("Fixture sync completed")

	return summary, nil
}

func (s *FixtureSync) upsertBatch(ctx context.Context, batch []models.FixtureResponse) (ok, failed int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := range batch {
		wg.Add(1)
		go func(fr *models.FixtureResponse) {
			defer wg.Done()

			err := s.writer.Upsert(ctx, fr.ToFixture())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Error().Err(err).Int("fixture_id", fr.Fixture.ID).Msg("Failed to upsert fixture")
				return
			}
			ok++
		}(&batch[i])
	}

	wg.Wait()
	return ok, failed
}
