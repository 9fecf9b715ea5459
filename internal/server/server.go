// Package server exposes the matching service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"yashubustudio/occumatch/skillmatch"
)

const (
	apiPrefix       = "/api/v1"
	serviceName     = "occumatch"
	shutdownTimeout = 10 * time.Second
)

// Engine is the matching surface the HTTP layer depends on.
type Engine interface {
	ExtractResumeSkills(ctx context.Context, text string, threshold float64, topK int) (skillmatch.ExtractionResult, error)
	CalculateProfileMatch(ctx context.Context, candidateSkills, requirements []string, weightMatch, weightSimilarity float64) (skillmatch.ProfileMatchResult, error)
	InferOccupations(ctx context.Context, text string, topK int, threshold float64) ([]skillmatch.OccupationResult, error)
	InferPrimaryOccupation(ctx context.Context, text string, threshold float64) (skillmatch.OccupationResult, error)
	AnalyzeResume(ctx context.Context, text string, occupationThreshold, skillThreshold float64, topK int) (skillmatch.ResumeAnalysis, error)
	MatchUnrecognizedSkills(ctx context.Context, terms []string, topK int, threshold float64) (map[string]skillmatch.UnrecognizedMatch, error)
	EnrichSkills(ctx context.Context, skills []string, confidenceThreshold float64) (skillmatch.EnrichmentResult, error)
	SearchOccupationsBySkills(skills []string, limit int) []skillmatch.OccupationRecord
	Similarity(ctx context.Context, a, b string) (float64, error)
	ModelInfo() skillmatch.ModelInfo
	SkillsReady() bool
	OccupationsReady() bool
}

type Server struct {
	engine  Engine
	cfg     skillmatch.ServerConfig
	version string
	logger  *zap.Logger
	handler http.Handler
}

// New wires routes and middleware. version is reported by /health.
func New(engine Engine, cfg skillmatch.ServerConfig, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		cfg:     cfg,
		version: version,
		logger:  logger.Named("http"),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	var h http.Handler = mux
	h = BodyLimit(cfg.MaxBodyBytes)(h)
	h = Timeout(cfg.RequestTimeout)(h)
	h = RateLimit(limiter)(h)
	h = AccessLog(s.logger)(h)
	h = Recover(s.logger)(h)
	h = RequestID(h)
	s.handler = h
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+apiPrefix+"/extract", s.handleExtract)
	mux.HandleFunc("POST "+apiPrefix+"/match-profile", s.handleMatchProfile)
	mux.HandleFunc("POST "+apiPrefix+"/infer-occupation", s.handleInferOccupation)
	mux.HandleFunc("POST "+apiPrefix+"/infer-primary-occupation", s.handleInferPrimary)
	mux.HandleFunc("POST "+apiPrefix+"/analyze-resume", s.handleAnalyzeResume)

	mux.HandleFunc("POST "+apiPrefix+"/skills/match", s.handleSkillsMatch)
	mux.HandleFunc("POST "+apiPrefix+"/skills/enrich", s.handleSkillsEnrich)
	mux.HandleFunc("POST "+apiPrefix+"/skills/occupations", s.handleSkillsOccupations)
	mux.HandleFunc("POST "+apiPrefix+"/skills/similarity", s.handleSimilarity)
	mux.HandleFunc("GET "+apiPrefix+"/skills/model-info", s.handleModelInfo)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/live", s.handleLive)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	mux.HandleFunc("GET /health/extract", s.handleHealthExtract)
	mux.HandleFunc("GET /health/occupation", s.handleHealthOccupation)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
