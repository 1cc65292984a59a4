package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aibets/predictor/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles ai_predictions table operations.
// Rows are insert-only; several rows may exist per fixture.
type PredictionRepository struct {
	db *Database
}

const predictionColumns = `id, fixture_id, type, chain_of_thought, final_prediction,
	value_bets_json, model_version, generated_at`

// CreatePrediction inserts a prediction and returns the id assigned by the store
func (r *PredictionRepository) CreatePrediction(ctx context.Context, pred *models.Prediction) (int64, error) {
	if pred == nil {
		return 0, fmt.Errorf("prediction cannot be nil")
	}
	if err := validatePrediction(pred); err != nil {
		return 0, fmt.Errorf("prediction validation failed: %w", err)
	}

	query := `
		INSERT INTO ai_predictions (
			fixture_id, type, chain_of_thought, final_prediction,
			value_bets_json, model_version, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	start := time.Now()
	var id int64
	err := r.db.Pool.QueryRow(ctx, query,
		pred.FixtureID, pred.Type, pred.ChainOfThought, pred.FinalPrediction,
		string(pred.ValueBetsJSON), pred.ModelVersion, pred.GeneratedAt,
	).Scan(&id)
	observe("insert", "ai_predictions", start, err)

	if err != nil {
		return 0, fmt.Errorf("failed to create prediction: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("store returned no id for fixture %d", pred.FixtureID)
	}

	pred.ID = id
	log.Debug().Int64("prediction_id", id).Int("fixture_id", pred.FixtureID).Msg("Prediction row inserted")
	return id, nil
}

// ListPredictedFixtureIDs returns the set of fixtures with at least one prediction of predType
func (r *PredictionRepository) ListPredictedFixtureIDs(ctx context.Context, predType string) (map[int]struct{}, error) {
	query := `SELECT DISTINCT fixture_id FROM ai_predictions WHERE type = $1`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, predType)
	if err != nil {
		observe("select", "ai_predictions", start, err)
		return nil, fmt.Errorf("failed to list predicted fixtures: %w", err)
	}
	defer rows.Close()

	ids := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fixture id: %w", err)
		}
		ids[id] = struct{}{}
	}
	err = rows.Err()
	observe("select", "ai_predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list predicted fixtures: %w", err)
	}

	return ids, nil
}

// GetLatestByFixtureID returns the most recent prediction of predType for a fixture
func (r *PredictionRepository) GetLatestByFixtureID(ctx context.Context, fixtureID int, predType string) (*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM ai_predictions
		WHERE fixture_id = $1 AND type = $2
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`

	start := time.Now()
	pred, err := scanPrediction(r.db.Pool.QueryRow(ctx, query, fixtureID, predType))
	observe("select", "ai_predictions", start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prediction for fixture %d: %w", fixtureID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return pred, nil
}

// ListLatestPredictions returns the newest prediction per fixture, newest first
func (r *PredictionRepository) ListLatestPredictions(ctx context.Context, limit int) ([]*models.Prediction, error) {
	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (fixture_id) ` + predictionColumns + `
			FROM ai_predictions
			ORDER BY fixture_id, generated_at DESC, id DESC
		) latest
		ORDER BY generated_at DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		observe("select", "ai_predictions", start, err)
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var preds []*models.Prediction
	for rows.Next() {
		pred, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}
	err = rows.Err()
	observe("select", "ai_predictions", start, err)

	return preds, err
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var p models.Prediction
	var bets []byte
	err := row.Scan(
		&p.ID, &p.FixtureID, &p.Type, &p.ChainOfThought, &p.FinalPrediction,
		&bets, &p.ModelVersion, &p.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ValueBetsJSON = bets
	return &p, nil
}

// validatePrediction checks required fields before insert
func validatePrediction(pred *models.Prediction) error {
	if pred.FixtureID <= 0 {
		return fmt.Errorf("fixture_id must be positive, got %d", pred.FixtureID)
	}
	if pred.Type == "" {
		return fmt.Errorf("type is required")
	}
	if pred.ChainOfThought == "" && pred.FinalPrediction == "" {
		return fmt.Errorf("chain_of_thought and final_prediction cannot both be empty")
	}
	if pred.ModelVersion == "" {
		return fmt.Errorf("model_version is required")
	}
	if pred.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at is required")
	}
	return nil
}
