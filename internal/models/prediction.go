package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PredictionTypePreMatch tags predictions generated before kickoff
const PredictionTypePreMatch = "pre-match"

// DefaultModelVersion is recorded when no model is configured
const DefaultModelVersion = "o4-mini"

// Prediction represents one AI-generated analysis for a fixture
type Prediction struct {
	ID              int64           `db:"id" json:"id"`
	FixtureID       int             `db:"fixture_id" json:"fixture_id"`
	Type            string          `db:"type" json:"type"`
	ChainOfThought  string          `db:"chain_of_thought" json:"chain_of_thought"`
	FinalPrediction string          `db:"final_prediction" json:"final_prediction"`
	ValueBetsJSON   json.RawMessage `db:"value_bets_json" json:"value_bets_json"`
	ModelVersion    string          `db:"model_version" json:"model_version"`
	GeneratedAt     time.Time       `db:"generated_at" json:"generated_at"`
}

// ValueBet is a single recommended market embedded in a prediction
type ValueBet struct {
	Market     string  `json:"market"`
	Odds       float64 `json:"odds"`
	Confidence int     `json:"confidence"`
}

// NoValueBet is stored when the model recommended nothing usable
var NoValueBet = ValueBet{Market: "No value bet available", Odds: 0, Confidence: 0}

// IsPlaceholder reports whether the bet is the "no value bet" marker
func (vb ValueBet) IsPlaceholder() bool {
	return vb == NoValueBet
}

// PredictionInput is the parsed model output plus the metadata needed to persist it
type PredictionInput struct {
	FixtureID       int
	ChainOfThought  string
	FinalPrediction string
	ValueBets       []ValueBet
	ModelVersion    string
}

// ToPrediction converts PredictionInput to a pre-match Prediction row
func (pi *PredictionInput) ToPrediction(generatedAt time.Time) (*Prediction, error) {
	bets := pi.ValueBets
	if bets == nil {
		bets = []ValueBet{}
	}
	data, err := json.Marshal(bets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value bets: %w", err)
	}

	version := pi.ModelVersion
	if version == "" {
		version = DefaultModelVersion
	}

	return &Prediction{
		FixtureID:       pi.FixtureID,
		Type:            PredictionTypePreMatch,
		ChainOfThought:  pi.ChainOfThought,
		FinalPrediction: pi.FinalPrediction,
		ValueBetsJSON:   data,
		ModelVersion:    version,
		GeneratedAt:     generatedAt.UTC(),
	}, nil
}

// ValueBets decodes the stored value bet list
func (p *Prediction) ValueBets() ([]ValueBet, error) {
	if len(p.ValueBetsJSON) == 0 {
		return nil, nil
	}
	var bets []ValueBet
	if err := json.Unmarshal(p.ValueBetsJSON, &bets); err != nil {
		return nil, fmt.Errorf("failed to decode value bets for prediction %d: %w", p.ID, err)
	}
	return bets, nil
}
