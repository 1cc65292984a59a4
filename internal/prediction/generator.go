// Package prediction turns fixtures into persisted AI betting analyses.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aibets/predictor/internal/metrics"
	"aibets/predictor/internal/models"
	"aibets/predictor/internal/repository"

	"github.com/rs/zerolog/log"
)

// SportsData is the subset of the football API the generator needs
type SportsData interface {
	GetFixture(ctx context.Context, fixtureID int) (*models.FixtureResponse, error)
	GetOdds(ctx context.Context, fixtureID int) ([]models.OddsResponse, error)
	GetPredictions(ctx context.Context, fixtureID int) ([]models.PredictionResponse, error)
}

// Completer sends one prompt to the language model
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PredictionStore persists and reads prediction rows
type PredictionStore interface {
	CreatePrediction(ctx context.Context, pred *models.Prediction) (int64, error)
	GetLatestByFixtureID(ctx context.Context, fixtureID int, predType string) (*models.Prediction, error)
}

// Generator produces one prediction per call
type Generator struct {
	sports       SportsData
	llm          Completer
	store        PredictionStore
	modelVersion string
	now          func() time.Time
}

// NewGenerator creates a Generator. modelVersion is recorded on every row.
func NewGenerator(sports SportsData, llm Completer, store PredictionStore, modelVersion string) *Generator {
	if modelVersion == "" {
		modelVersion = models.DefaultModelVersion
	}
	return &Generator{
		sports:       sports,
		llm:          llm,
		store:        store,
		modelVersion: modelVersion,
		now:          time.Now,
	}
}

// Generate runs the full pipeline for one fixture and returns the new row id.
// A zero id with a non-nil error means nothing was stored.
func (g *Generator) Generate(ctx context.Context, fixtureID int) (int64, error) {
	pred, err := g.generate(ctx, fixtureID)
	if err != nil {
		return 0, err
	}
	return pred.ID, nil
}

// EnsurePrediction returns the latest pre-match prediction for a fixture, generating one if none exists.
// created reports whether a new row was written.
func (g *Generator) EnsurePrediction(ctx context.Context, fixtureID int) (pred *models.Prediction, created bool, err error) {
	existing, err := g.store.GetLatestByFixtureID(ctx, fixtureID, models.PredictionTypePreMatch)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up prediction for fixture %d: %w", fixtureID, err)
	}

	pred, err = g.generate(ctx, fixtureID)
	if err != nil {
		return nil, false, err
	}
	return pred, true, nil
}

func (g *Generator) generate(ctx context.Context, fixtureID int) (pred *models.Prediction, err error) {
	start := time.Now()
	logger := log.With().Int("fixture_id", fixtureID).Logger()
	outcome := "generated"

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			pred, err = nil, fmt.Errorf("prediction for fixture %d panicked: %v", fixtureID, r)
			logger.Error().Interface("panic", r).Msg("Prediction generation panicked")
		}
		metrics.RecordPrediction(outcome, time.Since(start).Seconds())
	}()

	logger.Info().Msg("Generating prediction")

	// 1. Fixture: the only data fetch that is fatal
	fixture, err := g.sports.GetFixture(ctx, fixtureID)
	if err != nil {
		outcome = "fixture_error"
		logger.Error().Err(err).Msg("Failed to retrieve fixture")
		return nil, fmt.Errorf("failed to retrieve fixture %d: %w", fixtureID, err)
	}

	// 2. Odds: absence is common
	odds, err := g.sports.GetOdds(ctx, fixtureID)
	if err != nil {
		logger.Warn().Err(err).Msg("Odds unavailable, continuing without")
		odds = nil
	} else if len(odds) == 0 {
		logger.Warn().Msg("No odds published for fixture")
	}

	// 3. Provider statistics
	stats := models.FallbackStats()
	if fetched, err := g.sports.GetPredictions(ctx, fixtureID); err != nil {
		logger.Warn().Err(err).Msg("Prediction statistics unavailable, using fallback")
	} else if len(fetched) == 0 {
		logger.Warn().Msg("No prediction statistics for fixture, using fallback")
	} else {
		stats = &fetched[0]
	}

	// 4-5. Prompt and completion
	prompt := BuildPrompt(fixture, odds, stats)
	reply, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		outcome = "llm_error"
		logger.Error().Err(err).Msg("Language model call failed")
		return nil, fmt.Errorf("failed to get model prediction for fixture %d: %w", fixtureID, err)
	}
	logger.Debug().Int("length", len(reply)).Msg("Model reply received")

	// 6. Parse, never fatal
	result := ParseResponse(reply)
	applyFallbacks(&result, fixture)

	// 7. Persist
	input := &models.PredictionInput{
		FixtureID:       fixtureID,
		ChainOfThought:  result.ChainOfThought,
		FinalPrediction: result.FinalPrediction,
		ValueBets:       result.ValueBets,
		ModelVersion:    g.modelVersion,
	}
	pred, err = input.ToPrediction(g.now())
	if err != nil {
		outcome = "store_error"
		logger.Error().Err(err).Msg("Failed to build prediction row")
		return nil, err
	}

	id, err := g.store.CreatePrediction(ctx, pred)
	if err == nil && id == 0 {
		err = errors.New("store returned no identifier")
	}
	if err != nil {
		outcome = "store_error"
		logger.Error().Err(err).Msg("Failed to save prediction")
		return nil, fmt.Errorf("failed to save prediction for fixture %d: %w", fixtureID, err)
	}
	pred.ID = id

	logger.Info().
		Int64("prediction_id", id).
		Int("value_bets", len(result.ValueBets)).
		Dur("duration", time.Since(start)).
		Msg("Prediction saved")

	return pred, nil
}

// applyFallbacks fills sections the model left out so a row never has empty required text
func applyFallbacks(r *Result, fixture *models.FixtureResponse) {
	home, away := fixture.Teams.Home.Name, fixture.Teams.Away.Name

	if r.ChainOfThought == "" {
		r.ChainOfThought = fmt.Sprintf(
			"Analysis for %s vs %s could not be generated. Please check the fixture details and try again.", home, away)
	}
	if r.FinalPrediction == "" {
		r.FinalPrediction = fmt.Sprintf("Prediction for %s vs %s could not be generated.", home, away)
	}
	if len(r.ValueBets) == 0 {
		r.ValueBets = []models.ValueBet{models.NoValueBet}
	}
}
