package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fixtures (
		fixture_id   INTEGER PRIMARY KEY,
		league_id    INTEGER NOT NULL,
		league_name  TEXT NOT NULL DEFAULT '',
		home_id      INTEGER NOT NULL,
		home_name    TEXT NOT NULL DEFAULT '',
		away_id      INTEGER NOT NULL,
		away_name    TEXT NOT NULL DEFAULT '',
		utc_kickoff  TIMESTAMPTZ NOT NULL,
		status       TEXT NOT NULL,
		score_home   INTEGER,
		score_away   INTEGER,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fixtures_kickoff ON fixtures (utc_kickoff)`,
	`CREATE TABLE IF NOT EXISTS ai_predictions (
		id               BIGSERIAL PRIMARY KEY,
		fixture_id       INTEGER NOT NULL,
		type             TEXT NOT NULL,
		chain_of_thought TEXT NOT NULL,
		final_prediction TEXT NOT NULL,
		value_bets_json  JSONB NOT NULL DEFAULT '[]'::jsonb,
		model_version    TEXT NOT NULL,
		generated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// No unique constraint: every generation is kept as history
	`CREATE INDEX IF NOT EXISTS idx_ai_predictions_fixture_type
		ON ai_predictions (fixture_id, type, generated_at DESC)`,
}

// EnsureSchema creates the tables the service writes to if they do not exist
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	log.Info().Int("statements", len(schemaStatements)).Msg("Database schema ensured")
	return nil
}
