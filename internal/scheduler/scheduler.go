package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"aibets/predictor/internal/ingest"
	"aibets/predictor/internal/metrics"
	"aibets/predictor/internal/prediction"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrDailyUpdateRunning is returned when a daily update is already in flight in this process
var ErrDailyUpdateRunning = errors.New("daily update already running")

// FixtureSyncer runs one fixture sync pass
type FixtureSyncer interface {
	Run(ctx context.Context) (ingest.Summary, error)
}

// BatchRunner runs one batch prediction pass
type BatchRunner interface {
	Run(ctx context.Context) (prediction.Summary, error)
}

// Config controls when the jobs fire
type Config struct {
	DailyUpdateCron string
	SyncInterval    time.Duration
}

// DailyReport is the outcome of one daily update
type DailyReport struct {
	RunID     string             `json:"run_id"`
	Sync      ingest.Summary     `json:"sync"`
	SyncError string             `json:"sync_error,omitempty"`
	Batch     prediction.Summary `json:"batch"`
	Duration  time.Duration      `json:"duration"`
}

// Scheduler drives the background jobs:
// - daily update on a cron schedule (fixture sync, then batch pass)
// - fixture sync on a fixed interval
type Scheduler struct {
	cfg      Config
	syncer   FixtureSyncer
	batch    BatchRunner
	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config, syncer FixtureSyncer, batch BatchRunner) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		syncer:   syncer,
		batch:    batch,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start registers the cron job and starts the sync ticker
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.DailyUpdateCron, func() {
		if _, err := s.RunDailyUpdate(ctx, uuid.NewString()); err != nil {
			log.Error().Err(err).Msg("Daily update failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule daily update: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.DailyUpdateCron).
		Msg("Daily update scheduled")

	if s.cfg.SyncInterval > 0 {
		s.ticker = time.NewTicker(s.cfg.SyncInterval)
		log.Info().
			Dur("interval", s.cfg.SyncInterval).
			Msg("Fixture sync polling started")

		s.wg.Add(1)
		go s.pollFixtures(ctx)
	}

	return nil
}

// Stop stops the cron and ticker and waits for running jobs
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping scheduler...")

		<-s.cron.Stop().Done()

		if s.ticker != nil {
			s.ticker.Stop()
		}

		close(s.stopChan)
		s.wg.Wait()
		log.Info().Msg("Scheduler stopped")
	})
}

func (s *Scheduler) pollFixtures(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping fixture sync polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping fixture sync polling")
			return
		case <-s.ticker.C:
			// The daily update already syncs
			if s.running.Load() {
				log.Debug().Msg("Daily update in progress, skipping fixture sync tick")
				continue
			}
			if _, err := s.syncer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Fixture sync failed")
			}
		}
	}
}

// RunDailyUpdate runs a fixture sync followed by a batch prediction pass.
// A sync failure is logged and the batch pass still runs.
func (s *Scheduler) RunDailyUpdate(ctx context.Context, runID string) (*DailyReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Str("run_id", runID).Msg("Daily update already running, skipping")
		return nil, ErrDailyUpdateRunning
	}
	defer s.running.Store(false)

	return s.dailyUpdate(ctx, runID)
}

// TriggerDailyUpdate starts a daily update in the background and returns its run id
func (s *Scheduler) TriggerDailyUpdate(ctx context.Context) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrDailyUpdateRunning
	}

	runID := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		if _, err := s.dailyUpdate(ctx, runID); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Daily update failed")
		}
	}()

	return runID, nil
}

func (s *Scheduler) dailyUpdate(ctx context.Context, runID string) (*DailyReport, error) {
	start := time.Now()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Msg("Running daily update...")

	report := &DailyReport{RunID: runID}

	syncSummary, err := s.syncer.Run(ctx)
	report.Sync = syncSummary
	if err != nil {
		report.SyncError = err.Error()
		metrics.RecordError("scheduler", "fixture_sync")
		logger.Error().Err(err).Msg("Fixture sync step failed, continuing with predictions")
	}

	batchSummary, err := s.batch.Run(ctx)
	report.Batch = batchSummary
	report.Duration = time.Since(start)
	if err != nil {
		return report, fmt.Errorf("batch prediction pass: %w", err)
	}

	logger.Info().
		Int("fixtures_processed", report.Sync.Processed).
		Int("predictions_generated", report.Batch.Generated).
		Int("predictions_failed", report.Batch.Failed).
		Dur("duration", report.Duration).
		Msg("Daily update complete")

	return report, nil
}
