package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aibets/predictor/internal/models"

	"github.com/jackc/pgx/v5"
)

// FixtureRepository handles fixture-related database operations
type FixtureRepository struct {
	db *Database
}

const fixtureColumns = `fixture_id, league_id, league_name, home_id, home_name, away_id, away_name,
	utc_kickoff, status, score_home, score_away, last_updated`

// Upsert inserts or updates a fixture keyed on fixture_id
func (r *FixtureRepository) Upsert(ctx context.Context, f *models.Fixture) error {
	query := `
		INSERT INTO fixtures (` + fixtureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (fixture_id) DO UPDATE SET
			league_id = EXCLUDED.league_id,
			league_name = EXCLUDED.league_name,
			home_id = EXCLUDED.home_id,
			home_name = EXCLUDED.home_name,
			away_id = EXCLUDED.away_id,
			away_name = EXCLUDED.away_name,
			utc_kickoff = EXCLUDED.utc_kickoff,
			status = EXCLUDED.status,
			score_home = EXCLUDED.score_home,
			score_away = EXCLUDED.score_away,
			last_updated = EXCLUDED.last_updated
	`

	if f.LastUpdated.IsZero() {
		f.LastUpdated = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.db.Pool.Exec(ctx, query,
		f.FixtureID, f.LeagueID, f.LeagueName, f.HomeTeamID, f.HomeTeamName, f.AwayTeamID, f.AwayTeamName,
		f.KickoffUTC, f.Status, f.HomeScore, f.AwayScore, f.LastUpdated,
	)
	observe("upsert", "fixtures", start, err)

	if err != nil {
		return fmt.Errorf("failed to upsert fixture %d: %w", f.FixtureID, err)
	}

	return nil
}

// GetByFixtureID retrieves a fixture by its API-Football id
func (r *FixtureRepository) GetByFixtureID(ctx context.Context, fixtureID int) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE fixture_id = $1`

	start := time.Now()
	f, err := scanFixture(r.db.Pool.QueryRow(ctx, query, fixtureID))
	observe("select", "fixtures", start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fixture %d: %w", fixtureID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture: %w", err)
	}

	return f, nil
}

// ListUpcoming returns fixtures kicking off at or after from, soonest first
func (r *FixtureRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*models.Fixture, error) {
	query := `
		SELECT ` + fixtureColumns + `
		FROM fixtures
		WHERE utc_kickoff >= $1
		ORDER BY utc_kickoff, fixture_id
		LIMIT $2
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, from, limit)
	if err != nil {
		observe("select", "fixtures", start, err)
		return nil, fmt.Errorf("failed to list upcoming fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []*models.Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fixtures = append(fixtures, f)
	}
	err = rows.Err()
	observe("select", "fixtures", start, err)

	return fixtures, err
}

func scanFixture(row pgx.Row) (*models.Fixture, error) {
	var f models.Fixture
	err := row.Scan(
		&f.FixtureID, &f.LeagueID, &f.LeagueName, &f.HomeTeamID, &f.HomeTeamName, &f.AwayTeamID, &f.AwayTeamName,
		&f.KickoffUTC, &f.Status, &f.HomeScore, &f.AwayScore, &f.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
