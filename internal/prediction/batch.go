package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aibets/predictor/internal/metrics"
	"aibets/predictor/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrBatchInProgress is returned when another batch pass holds the lock
var ErrBatchInProgress = errors.New("batch pass already in progress")

// BatchLockKey is the Redis key guarding batch passes
const BatchLockKey = "lock:batch-predictions"

// FixtureSource lists upcoming fixtures
type FixtureSource interface {
	GetUpcomingFixtures(ctx context.Context, leagueIDs []int, daysAhead int) ([]models.FixtureResponse, error)
}

// PredictedIndex reports which fixtures already have predictions
type PredictedIndex interface {
	ListPredictedFixtureIDs(ctx context.Context, predType string) (map[int]struct{}, error)
}

// SingleGenerator generates one prediction
type SingleGenerator interface {
	Generate(ctx context.Context, fixtureID int) (int64, error)
}

// Locker provides a best-effort distributed lock
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// BatchConfig controls which fixtures a pass covers and how it is paced
type BatchConfig struct {
	LeagueIDs []int
	DaysAhead int
	Delay     time.Duration
	LockTTL   time.Duration
}

// Summary is the outcome of one batch pass
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Generated int           `json:"generated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Batch generates predictions for every upcoming fixture that has none
type Batch struct {
	fixtures  FixtureSource
	predicted PredictedIndex
	generator SingleGenerator
	locker    Locker
	cfg       BatchConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewBatch creates a batch orchestrator
func NewBatch(fixtures FixtureSource, predicted PredictedIndex, generator SingleGenerator, cfg BatchConfig) *Batch {
	return &Batch{
		fixtures:  fixtures,
		predicted: predicted,
		generator: generator,
		cfg:       cfg,
		sleep:     sleepContext,
	}
}

// WithLocker excludes overlapping passes across processes
func (b *Batch) WithLocker(l Locker) *Batch {
	b.locker = l
	return b
}

// Run performs one batch pass.
// It fails only when the fixture list or the set of predicted fixtures cannot be loaded,
// or when ctx ends; per-fixture failures are counted in Summary.Failed.
func (b *Batch) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", summary.RunID).Logger()

	release, err := b.lock(ctx)
	if err != nil {
		return summary, err
	}
	defer release()

	upcoming, err := b.fixtures.GetUpcomingFixtures(ctx, b.cfg.LeagueIDs, b.cfg.DaysAhead)
	if err != nil {
		metrics.RecordSync("batch", "failed", time.Since(start).Seconds())
		return summary, fmt.Errorf("failed to fetch upcoming fixtures: %w", err)
	}

	existing, err := b.predicted.ListPredictedFixtureIDs(ctx, models.PredictionTypePreMatch)
	if err != nil {
		metrics.RecordSync("batch", "failed", time.Since(start).Seconds())
		return summary, fmt.Errorf("failed to load existing predictions: %w", err)
	}

	summary.Total = len(upcoming)
	summary.Skipped = len(existing)

	pending := make([]int, 0, len(upcoming))
	for _, f := range upcoming {
		if _, done := existing[f.Fixture.ID]; !done {
			pending = append(pending, f.Fixture.ID)
		}
	}

	logger.Info().
		Int("total", summary.Total).
		Int("pending", len(pending)).
		Int("already_predicted", summary.Skipped).
		Msg("Starting batch prediction pass")

	for i, fixtureID := range pending {
		if err := ctx.Err(); err != nil {
			return b.finish(summary, start, "cancelled"), err
		}

		if id, err := b.generateOne(ctx, fixtureID); err != nil || id == 0 {
			summary.Failed++
			logger.Warn().Err(err).Int("fixture_id", fixtureID).Msg("Prediction failed")
		} else {
			summary.Generated++
		}

		// Pause between model calls, not after the last one
		if i < len(pending)-1 && b.cfg.Delay > 0 {
			if err := b.sleep(ctx, b.cfg.Delay); err != nil {
				return b.finish(summary, start, "cancelled"), err
			}
		}
	}

	summary = b.finish(summary, start, "success")
	logger.Info().
		Int("total", summary.Total).
		Int("generated", summary.Generated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Batch prediction pass completed")

	return summary, nil
}

// generateOne isolates a single fixture so a panic counts as a failure
func (b *Batch) generateOne(ctx context.Context, fixtureID int) (id int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return b.generator.Generate(ctx, fixtureID)
}

func (b *Batch) finish(s Summary, start time.Time, status string) Summary {
	s.Duration = time.Since(start)
	metrics.RecordBatch(s.Total, s.Generated, s.Skipped, s.Failed)
	metrics.RecordSync("batch", status, s.Duration.Seconds())
	return s
}

// lock takes the batch lock when a locker is configured.
// Lock backend faults are logged and the pass runs unlocked.
func (b *Batch) lock(ctx context.Context) (func(), error) {
	noop := func() {}
	if b.locker == nil {
		return noop, nil
	}

	ttl := b.cfg.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	token, ok, err := b.locker.TryLock(ctx, BatchLockKey, ttl)
	if err != nil {
		log.Warn().Err(err).Msg("Batch lock unavailable, running unlocked")
		return noop, nil
	}
	if !ok {
		return nil, ErrBatchInProgress
	}

	return func() {
		// The pass context may already be cancelled
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.locker.Unlock(unlockCtx, BatchLockKey, token); err != nil {
			log.Warn().Err(err).Msg("Failed to release batch lock")
		}
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
