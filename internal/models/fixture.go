package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Fixture represents a scheduled football match as stored in the fixtures table
type Fixture struct {
	FixtureID    int           `db:"fixture_id"`
	LeagueID     int           `db:"league_id"`
	LeagueName   string        `db:"league_name"`
	HomeTeamID   int           `db:"home_id"`
	HomeTeamName string        `db:"home_name"`
	AwayTeamID   int           `db:"away_id"`
	AwayTeamName string        `db:"away_name"`
	KickoffUTC   time.Time     `db:"utc_kickoff"`
	Status       string        `db:"status"`
	HomeScore    sql.NullInt32 `db:"score_home"`
	AwayScore    sql.NullInt32 `db:"score_away"`
	LastUpdated  time.Time     `db:"last_updated"`
}

// FixtureResponse is one element of the API-Football /fixtures response
type FixtureResponse struct {
	Fixture FixtureDetails `json:"fixture"`
	League  LeagueInfo     `json:"league"`
	Teams   TeamPair       `json:"teams"`
	Goals   ScorePair      `json:"goals"`
}

// FixtureDetails holds the fixture block of a fixture response
type FixtureDetails struct {
	ID        int           `json:"id"`
	Referee   *string       `json:"referee"`
	Timezone  string        `json:"timezone"`
	Date      string        `json:"date"` // ISO 8601 format
	Timestamp int64         `json:"timestamp"`
	Status    FixtureStatus `json:"status"`
}

// FixtureStatus is the match status block
type FixtureStatus struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

// LeagueInfo identifies a league/season
type LeagueInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Logo    string `json:"logo"`
	Flag    string `json:"flag"`
	Season  int    `json:"season"`
	Round   string `json:"round"`
}

// TeamInfo identifies one side of a fixture
type TeamInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Winner *bool  `json:"winner"`
}

// TeamPair holds home and away teams
type TeamPair struct {
	Home TeamInfo `json:"home"`
	Away TeamInfo `json:"away"`
}

// ScorePair holds nullable home/away goals
type ScorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// Validate checks the fields the pipeline cannot work without
func (fr *FixtureResponse) Validate() error {
	if fr.Fixture.ID <= 0 {
		return fmt.Errorf("fixture id must be positive")
	}
	if fr.Teams.Home.Name == "" || fr.Teams.Away.Name == "" {
		return fmt.Errorf("fixture %d is missing team names", fr.Fixture.ID)
	}
	return nil
}

// Kickoff returns the scheduled kickoff in UTC.
// Falls back to the unix timestamp when the date string does not parse.
func (fr *FixtureResponse) Kickoff() time.Time {
	if t, err := time.Parse(time.RFC3339, fr.Fixture.Date); err == nil {
		return t.UTC()
	}
	if fr.Fixture.Timestamp > 0 {
		return time.Unix(fr.Fixture.Timestamp, 0).UTC()
	}
	return time.Time{}
}

// ToFixture converts a FixtureResponse (from API) to the Fixture row
func (fr *FixtureResponse) ToFixture() *Fixture {
	fixture := &Fixture{
		FixtureID:    fr.Fixture.ID,
		LeagueID:     fr.League.ID,
		LeagueName:   fr.League.Name,
		HomeTeamID:   fr.Teams.Home.ID,
		HomeTeamName: fr.Teams.Home.Name,
		AwayTeamID:   fr.Teams.Away.ID,
		AwayTeamName: fr.Teams.Away.Name,
		KickoffUTC:   fr.Kickoff(),
		Status:       fr.Fixture.Status.Short,
		LastUpdated:  time.Now().UTC(),
	}

	if fr.Goals.Home != nil {
		fixture.HomeScore = sql.NullInt32{Int32: int32(*fr.Goals.Home), Valid: true}
	}
	if fr.Goals.Away != nil {
		fixture.AwayScore = sql.NullInt32{Int32: int32(*fr.Goals.Away), Valid: true}
	}

	return fixture
}

// IsUpcoming reports whether the match has not started yet
func (f *Fixture) IsUpcoming() bool {
	switch f.Status {
	case "TBD", "NS":
		return true
	}
	return false
}
