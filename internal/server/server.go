package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"aibets/predictor/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PredictionService generates predictions on demand
type PredictionService interface {
	Generate(ctx context.Context, fixtureID int) (int64, error)
	EnsurePrediction(ctx context.Context, fixtureID int) (*models.Prediction, bool, error)
}

// PredictionReader reads stored predictions
type PredictionReader interface {
	GetLatestByFixtureID(ctx context.Context, fixtureID int, predType string) (*models.Prediction, error)
	ListLatestPredictions(ctx context.Context, limit int) ([]*models.Prediction, error)
}

// FixtureReader reads stored fixtures
type FixtureReader interface {
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*models.Fixture, error)
}

// DailyTrigger starts a daily update in the background
type DailyTrigger interface {
	TriggerDailyUpdate(ctx context.Context) (string, error)
}

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
	CronSecret     string
	DevMode        bool

	// JobContext bounds work started by a request that outlives it
	JobContext context.Context

	Health      HealthChecker
	Generator   PredictionService
	Predictions PredictionReader
	Fixtures    FixtureReader
	Daily       DailyTrigger
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	cfg     Config
	started time.Time
	now     func() time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.JobContext == nil {
		cfg.JobContext = context.Background()
	}

	s := &Server{
		router:  chi.NewRouter(),
		log:     log.With().Str("component", "server").Logger(),
		cfg:     cfg,
		started: time.Now(),
		now:     time.Now,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if !s.cfg.DevMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Generation calls the language model and can take a while
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(4 * time.Minute))
			r.Post("/generate-prediction", s.handleGeneratePrediction)
			r.Post("/fixtures/{fixtureId}/prediction", s.handleEnsurePrediction)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/predictions", s.handleListPredictions)
			r.Get("/predictions/{fixtureId}", s.handleGetPrediction)
			r.Get("/fixtures", s.handleListFixtures)
		})

		r.With(s.requireCronSecret).Get("/cron/daily-update", s.handleDailyUpdate)
	})
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// requireCronSecret rejects requests without "Authorization: Bearer <secret>"
func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.CronSecret == "" || r.Header.Get("Authorization") != "Bearer "+s.cfg.CronSecret {
			s.log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Unauthorized access attempt to cron endpoint")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
