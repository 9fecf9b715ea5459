package server

import (
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"yashubustudio/occumatch/internal/logger"
	"yashubustudio/occumatch/skillmatch"
)

const (
	defaultSkillThreshold      = 0.75
	defaultSkillTopK           = 1
	defaultOccupationThreshold = 0.65
	defaultOccupationTopK      = 5
	defaultAnalyzeTopK         = 3
	defaultUnrecognizedTopK    = 3
	defaultWeightMatch         = 0.7
	defaultWeightSimilarity    = 0.3
	defaultOccupationLimit     = 10
	defaultConfidence          = 0.75
	previewLength              = 80
)

type envelope map[string]any

func (s *Server) success(w http.ResponseWriter, start time.Time, body envelope) {
	body["status"] = "success"
	body["processing_time"] = math.Round(time.Since(start).Seconds()*1000) / 1000
	RespondWithJSON(w, http.StatusOK, body)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err *APIError) {
	RespondWithError(w, err.WithRequestID(RequestIDFrom(r.Context())))
}

func (s *Server) failService(w http.ResponseWriter, r *http.Request, op string, err error) {
	apiErr := fromServiceError(err)
	if apiErr.Code >= http.StatusInternalServerError && apiErr.Code != http.StatusServiceUnavailable {
		s.logger.Error(op+" failed", zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
	}
	s.fail(w, r, apiErr)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	text, apiErr := p.resumeText()
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	threshold := p.float("threshold", defaultSkillThreshold, 0, 1)
	topK := p.integer("top_k", defaultSkillTopK, 1, 10)

	s.logger.Debug("extracting skills",
		zap.String("preview", logger.TruncateForLog(text, previewLength)),
		zap.Float64("threshold", threshold),
		zap.Int("top_k", topK),
	)
	res, err := s.engine.ExtractResumeSkills(r.Context(), text, threshold, topK)
	if err != nil {
		s.failService(w, r, "extract", err)
		return
	}
	s.success(w, start, envelope{
		"total_skills_found": res.TotalFound,
		"successful_matches": res.SuccessfulMatches,
		"match_rate":         res.MatchRate,
		"skills":             res.Skills,
	})
}

func (s *Server) handleMatchProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	candidate, apiErr := p.requiredList("candidate_skills")
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	requirements, apiErr := p.requiredList("job_requirements")
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	weightMatch := p.number("weight_match", defaultWeightMatch)
	weightSimilarity := p.number("weight_similarity", defaultWeightSimilarity)

	res, err := s.engine.CalculateProfileMatch(r.Context(), candidate, requirements, weightMatch, weightSimilarity)
	if err != nil {
		s.failService(w, r, "match profile", err)
		return
	}
	s.success(w, start, envelope{
		"match_score":       res.Score,
		"match_percentage":  res.Percentage,
		"level":             res.Level,
		"matched_skills":    res.Matched,
		"matched_count":     len(res.Matched),
		"missing_skills":    res.Missing,
		"missing_count":     len(res.Missing),
		"required_count":    len(res.Required),
		"analysis":          res.Analysis,
		"weight_match":      res.WeightMatch,
		"weight_similarity": res.WeightSimilarity,
	})
}

func (s *Server) handleInferOccupation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	text, apiErr := p.resumeText()
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	topK := p.integer("top_k", defaultOccupationTopK, 1, 20)
	threshold := p.float("threshold", defaultOccupationThreshold, 0, 1)

	occupations, err := s.engine.InferOccupations(r.Context(), text, topK, threshold)
	if err != nil {
		s.failService(w, r, "infer occupation", err)
		return
	}
	s.success(w, start, envelope{
		"occupations_found": len(occupations),
		"occupations":       occupations,
	})
}

func (s *Server) handleInferPrimary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	text, apiErr := p.resumeText()
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	threshold := p.float("threshold", defaultOccupationThreshold, 0, 1)

	occ, err := s.engine.InferPrimaryOccupation(r.Context(), text, threshold)
	if err != nil {
		s.failService(w, r, "infer primary occupation", err)
		return
	}
	s.success(w, start, envelope{"primary_occupation": occ})
}

func (s *Server) handleAnalyzeResume(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	text, apiErr := p.resumeText()
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	occThreshold := p.float("threshold_occupation", defaultOccupationThreshold, 0, 1)
	skillThreshold := p.float("threshold_skills", defaultSkillThreshold, 0, 1)
	topK := p.integer("top_k_occupations", defaultAnalyzeTopK, 1, 10)

	res, err := s.engine.AnalyzeResume(r.Context(), text, occThreshold, skillThreshold, topK)
	if err != nil {
		s.failService(w, r, "analyze resume", err)
		return
	}
	body := envelope{
		"resume_type":        res.ResumeType,
		"primary_occupation": res.PrimaryOccupation,
		"occupations":        res.Occupations,
		"skills":             []skillmatch.MatchResult{},
	}
	if res.Skills != nil {
		body["skills"] = res.Skills.Skills
		body["total_skills_found"] = res.Skills.TotalFound
		body["successful_matches"] = res.Skills.SuccessfulMatches
	}
	if res.Note != "" {
		body["note"] = res.Note
	}
	s.success(w, start, body)
}

func (s *Server) handleSkillsMatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	terms, apiErr := p.requiredList("unrecognized_skills")
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	topK := p.integer("top_k", defaultUnrecognizedTopK, 1, 20)
	threshold := p.float("threshold", defaultSkillThreshold, 0, 1)

	results, err := s.engine.MatchUnrecognizedSkills(r.Context(), terms, topK, threshold)
	if err != nil {
		s.failService(w, r, "match skills", err)
		return
	}
	s.success(w, start, envelope{
		"input_skills_count": len(terms),
		"results":            results,
		"parameters": envelope{
			"top_k":     topK,
			"threshold": threshold,
		},
	})
}

func (s *Server) handleSkillsEnrich(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	skills, apiErr := p.requiredList("skills")
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	confidence := p.number("confidence_threshold", defaultConfidence)

	res, err := s.engine.EnrichSkills(r.Context(), skills, confidence)
	if err != nil {
		s.failService(w, r, "enrich skills", err)
		return
	}
	s.success(w, start, envelope{"data": res})
}

func (s *Server) handleSkillsOccupations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	skills, apiErr := p.requiredList("skills")
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	limit := p.integer("limit", defaultOccupationLimit, 1, 50)

	occupations := s.engine.SearchOccupationsBySkills(skills, limit)
	s.success(w, start, envelope{
		"data": envelope{
			"input_skills":      skills,
			"occupations_found": len(occupations),
			"occupations":       occupations,
		},
	})
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, apiErr := decodePayload(r)
	if apiErr != nil {
		s.fail(w, r, apiErr)
		return
	}
	text1, text2 := p.str("text1"), p.str("text2")
	if strings.TrimSpace(text1) == "" || strings.TrimSpace(text2) == "" {
		s.fail(w, r, ErrBadRequest("text1 and text2 are required"))
		return
	}
	score, err := s.engine.Similarity(r.Context(), text1, text2)
	if err != nil {
		s.failService(w, r, "similarity", err)
		return
	}
	s.success(w, start, envelope{
		"text1":            text1,
		"text2":            text2,
		"similarity_score": math.Round(score*1e4) / 1e4,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	s.success(w, time.Now(), envelope{"model_info": s.engine.ModelInfo()})
}

func readiness(ready bool) string {
	if ready {
		return "healthy"
	}
	return statusInitializing
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, envelope{
		"status":  "healthy",
		"service": serviceName,
		"version": s.version,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, envelope{"status": "alive"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.engine.SkillsReady() && s.engine.OccupationsReady()
	code := http.StatusOK
	status := "ready"
	if !ready {
		code = http.StatusServiceUnavailable
		status = statusInitializing
	}
	RespondWithJSON(w, code, envelope{
		"status":           status,
		"skills_ready":     s.engine.SkillsReady(),
		"occupation_ready": s.engine.OccupationsReady(),
	})
}

func (s *Server) handleHealthExtract(w http.ResponseWriter, r *http.Request) {
	ready := s.engine.SkillsReady()
	RespondWithJSON(w, http.StatusOK, envelope{
		"status":      readiness(ready),
		"service":     "extraction",
		"model_ready": ready,
		"timestamp":   time.Now().Unix(),
	})
}

func (s *Server) handleHealthOccupation(w http.ResponseWriter, r *http.Request) {
	ready := s.engine.OccupationsReady()
	info := s.engine.ModelInfo()
	RespondWithJSON(w, http.StatusOK, envelope{
		"status":             readiness(ready),
		"service":            "occupation_inference",
		"model_ready":        ready,
		"occupations_loaded": info.OccupationSize,
		"timestamp":          time.Now().Unix(),
	})
}
