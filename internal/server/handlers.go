package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"aibets/predictor/internal/client"
	"aibets/predictor/internal/models"
	"aibets/predictor/internal/repository"
	"aibets/predictor/internal/scheduler"

	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type generateRequest struct {
	FixtureID int `json:"fixtureId"`
}

type generateResponse struct {
	Success      bool  `json:"success"`
	FixtureID    int   `json:"fixtureId"`
	PredictionID int64 `json:"predictionId"`
}

type ensureResponse struct {
	Created    bool               `json:"created"`
	Prediction *models.Prediction `json:"prediction"`
}

type fixtureView struct {
	FixtureID  int       `json:"fixture_id"`
	LeagueID   int       `json:"league_id"`
	LeagueName string    `json:"league_name"`
	HomeID     int       `json:"home_id"`
	HomeName   string    `json:"home_name"`
	AwayID     int       `json:"away_id"`
	AwayName   string    `json:"away_name"`
	Kickoff    time.Time `json:"utc_kickoff"`
	Status     string    `json:"status"`
	ScoreHome  *int32    `json:"score_home"`
	ScoreAway  *int32    `json:"score_away"`
}

func newFixtureView(f *models.Fixture) fixtureView {
	v := fixtureView{
		FixtureID:  f.FixtureID,
		LeagueID:   f.LeagueID,
		LeagueName: f.LeagueName,
		HomeID:     f.HomeTeamID,
		HomeName:   f.HomeTeamName,
		AwayID:     f.AwayTeamID,
		AwayName:   f.AwayTeamName,
		Kickoff:    f.KickoffUTC,
		Status:     f.Status,
	}
	if f.HomeScore.Valid {
		v.ScoreHome = &f.HomeScore.Int32
	}
	if f.AwayScore.Valid {
		v.ScoreAway = &f.AwayScore.Int32
	}
	return v
}

// handleHealth pings the store
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"uptime":    time.Since(s.started).Seconds(),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}

	if err := s.cfg.Health.Health(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "healthy"
	body["database"] = "connected"
	writeJSON(w, http.StatusOK, body)
}

// handleGeneratePrediction runs the single-fixture pipeline
// POST /api/generate-prediction {"fixtureId": n}
func (s *Server) handleGeneratePrediction(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FixtureID <= 0 {
		writeError(w, http.StatusBadRequest, "Fixture ID is required")
		return
	}

	id, err := s.cfg.Generator.Generate(r.Context(), req.FixtureID)
	if err != nil {
		s.log.Error().Err(err).Int("fixture_id", req.FixtureID).Msg("Failed to generate prediction")
		writeError(w, generationStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Success: true, FixtureID: req.FixtureID, PredictionID: id})
}

// handleEnsurePrediction returns the latest prediction, generating one if none exists
// POST /api/fixtures/{fixtureId}/prediction
func (s *Server) handleEnsurePrediction(w http.ResponseWriter, r *http.Request) {
	fixtureID, ok := fixtureParam(w, r)
	if !ok {
		return
	}

	pred, created, err := s.cfg.Generator.EnsurePrediction(r.Context(), fixtureID)
	if err != nil {
		s.log.Error().Err(err).Int("fixture_id", fixtureID).Msg("Failed to ensure prediction")
		writeError(w, generationStatus(err), err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ensureResponse{Created: created, Prediction: pred})
}

// handleListPredictions returns the latest prediction per fixture
// GET /api/predictions?limit=N
func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := s.cfg.Predictions.ListLatestPredictions(r.Context(), limitParam(r))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list predictions")
		writeError(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}
	if preds == nil {
		preds = []*models.Prediction{}
	}
	writeJSON(w, http.StatusOK, preds)
}

// handleGetPrediction returns the latest pre-match prediction for one fixture
// GET /api/predictions/{fixtureId}
func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	fixtureID, ok := fixtureParam(w, r)
	if !ok {
		return
	}

	pred, err := s.cfg.Predictions.GetLatestByFixtureID(r.Context(), fixtureID, models.PredictionTypePreMatch)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Prediction not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Int("fixture_id", fixtureID).Msg("Failed to get prediction")
		writeError(w, http.StatusInternalServerError, "Failed to get prediction")
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

// handleListFixtures returns stored fixtures kicking off from now on
// GET /api/fixtures?limit=N
func (s *Server) handleListFixtures(w http.ResponseWriter, r *http.Request) {
	fixtures, err := s.cfg.Fixtures.ListUpcoming(r.Context(), s.now().UTC(), limitParam(r))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list fixtures")
		writeError(w, http.StatusInternalServerError, "Failed to list fixtures")
		return
	}

	views := make([]fixtureView, 0, len(fixtures))
	for _, f := range fixtures {
		views = append(views, newFixtureView(f))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDailyUpdate starts a daily update and returns immediately
// GET /api/cron/daily-update
func (s *Server) handleDailyUpdate(w http.ResponseWriter, r *http.Request) {
	runID, err := s.cfg.Daily.TriggerDailyUpdate(s.cfg.JobContext)
	if errors.Is(err, scheduler.ErrDailyUpdateRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to start daily update")
		writeError(w, http.StatusInternalServerError, "Failed to start daily update")
		return
	}

	s.log.Info().Str("run_id", runID).Msg("Daily update triggered")
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":   true,
		"runId":     runID,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func generationStatus(err error) int {
	if errors.Is(err, client.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func fixtureParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "fixtureId"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid fixture ID")
		return 0, false
	}
	return id, true
}

func limitParam(r *http.Request) int {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
