package repository

import (
	"testing"
	"time"

	"aibets/predictor/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidatePrediction(t *testing.T) {
	valid := func() *models.Prediction {
		return &models.Prediction{
			FixtureID:       1,
			Type:            models.PredictionTypePreMatch,
			ChainOfThought:  "a",
			FinalPrediction: "b",
			ModelVersion:    "o4-mini",
			GeneratedAt:     time.Now(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *models.Prediction)
		wantErr bool
	}{
		{"valid", func(p *models.Prediction) {}, false},
		{"only final prediction", func(p *models.Prediction) { p.ChainOfThought = "" }, false},
		{"bad fixture", func(p *models.Prediction) { p.FixtureID = 0 }, true},
		{"missing type", func(p *models.Prediction) { p.Type = "" }, true},
		{"both texts empty", func(p *models.Prediction) {
			p.ChainOfThought = ""
			p.FinalPrediction = ""
		}, true},
		{"missing model", func(p *models.Prediction) { p.ModelVersion = "" }, true},
		{"missing timestamp", func(p *models.Prediction) { p.GeneratedAt = time.Time{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := validatePrediction(p)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "u", Password: "p@ss", Database: "aibets", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/aibets?sslmode=disable", cfg.DSN())
}
