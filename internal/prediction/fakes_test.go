package prediction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aibets/predictor/internal/models"
	"aibets/predictor/internal/repository"
)

func testFixture(id int) *models.FixtureResponse {
	return &models.FixtureResponse{
		Fixture: models.FixtureDetails{ID: id, Date: "2025-03-15T15:00:00+00:00", Status: models.FixtureStatus{Short: "NS"}},
		League:  models.LeagueInfo{ID: 39, Name: "Premier League"},
		Teams: models.TeamPair{
			Home: models.TeamInfo{ID: 40, Name: "Liverpool"},
			Away: models.TeamInfo{ID: 42, Name: "Arsenal"},
		},
	}
}

func testOdds() []models.OddsResponse {
	return []models.OddsResponse{{
		Bookmakers: []models.Bookmaker{{
			ID:   8,
			Name: "Bet365",
			Bets: []models.BetMarket{
				{Name: models.MarketMatchWinner, Values: []models.OddValue{
					{Value: "Home", Odd: "2.10"}, {Value: "Draw", Odd: "3.40"}, {Value: "Away", Odd: "3.25"},
				}},
				{Name: models.MarketGoalsOverUnder, Values: []models.OddValue{
					{Value: "Over 2.5", Odd: "1.72"}, {Value: "Under 2.5", Odd: "2.05"},
				}},
				{Name: models.MarketBothTeamsScore, Values: []models.OddValue{
					{Value: "Yes", Odd: "1.62"}, {Value: "No", Odd: "2.25"},
				}},
				{Name: "Exact Score", Values: []models.OddValue{{Value: "1:0", Odd: "8.00"}}},
			},
		}},
	}}
}

func testStats() []models.PredictionResponse {
	var stats models.PredictionResponse
	stats.Predictions.Percent = models.OutcomePercent{Home: "45%", Draw: "30%", Away: "25%"}
	stats.Predictions.Advice = "Double chance : Liverpool or draw"
	stats.Teams.Home.League.Form = "WWDLW"
	stats.Teams.Home.League.Goals.For.Average.Total = "2.1"
	stats.Teams.Home.League.Goals.Against.Average.Total = "0.9"
	stats.Teams.Away.League.Form = "WDWWL"
	stats.Teams.Away.League.Goals.For.Average.Total = "1.8"
	stats.Teams.Away.League.Goals.Against.Average.Total = "1.0"
	return []models.PredictionResponse{stats}
}

const wellFormedReply = `CHAIN OF THOUGHT:
Liverpool are strong at home.

FINAL PREDICTION:
Liverpool edge it 2-1.

VALUE BETS:
Market: Home Win
Odds: 2.10
Confidence: 60%

Market: Both Teams To Score - Yes
Odds: 1.62
Confidence: 70%`

type fakeSports struct {
	mu sync.Mutex

	fixture    *models.FixtureResponse
	fixtureErr error
	odds       []models.OddsResponse
	oddsErr    error
	stats      []models.PredictionResponse
	statsErr   error

	calls []string
}

func (f *fakeSports) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSports) GetFixture(_ context.Context, id int) (*models.FixtureResponse, error) {
	f.record("fixture")
	if f.fixtureErr != nil {
		return nil, f.fixtureErr
	}
	return f.fixture, nil
}

func (f *fakeSports) GetOdds(_ context.Context, id int) ([]models.OddsResponse, error) {
	f.record("odds")
	return f.odds, f.oddsErr
}

func (f *fakeSports) GetPredictions(_ context.Context, id int) ([]models.PredictionResponse, error) {
	f.record("predictions")
	return f.stats, f.statsErr
}

type fakeLLM struct {
	reply   string
	err     error
	panics  bool
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	if f.panics {
		panic("model client exploded")
	}
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeStore struct {
	nextID   int64
	zeroID   bool
	err      error
	rows     []*models.Prediction
	latest   map[int]*models.Prediction
	getErr   error
	getCalls int
}

func (f *fakeStore) CreatePrediction(_ context.Context, pred *models.Prediction) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.zeroID {
		return 0, nil
	}
	f.nextID++
	pred.ID = f.nextID
	f.rows = append(f.rows, pred)
	return f.nextID, nil
}

func (f *fakeStore) GetLatestByFixtureID(_ context.Context, fixtureID int, _ string) (*models.Prediction, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if p, ok := f.latest[fixtureID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prediction for fixture %d: %w", fixtureID, repository.ErrNotFound)
}

func newTestGenerator(sports *fakeSports, llm *fakeLLM, store *fakeStore) *Generator {
	g := NewGenerator(sports, llm, store, "o4-mini")
	g.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return g
}
