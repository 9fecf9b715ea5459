package skillmatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	enrichSearchTopK      = 5
	enrichSearchThreshold = 0.50
	maxSynonyms           = 3
	maxRelatedOccupations = 2
	skillOccupationLimit  = 5
)

// Service owns the skills and occupation indices and exposes the matching
// operations on top of them. Each index is built once, on first use or by Warm,
// and a failed build is returned by every later operation that needs it.
type Service struct {
	cfg      Config
	embedder Embedder
	registry *Registry
	logger   *zap.Logger

	skills          *CorpusIndex
	occupations     *CorpusIndex
	skillsOnce      sync.Once
	occupationsOnce sync.Once
	skillsErr       error
	occupationsErr  error

	extractor  *CandidateExtractor
	mapper     *SemanticMapper
	profile    *ProfileMatcher
	inferencer *OccupationInferencer
	classifier *Classifier
}

// NewService constructs a service with the given embedder, vocabulary and configuration.
func NewService(embedder Embedder, registry *Registry, cfg Config, logger *zap.Logger) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	rules, fromFile, err := LoadRuleSet(cfg.Matching.RulesFile)
	switch {
	case err != nil && errors.Is(err, os.ErrNotExist):
		logger.Warn("rules file not found, using defaults", zap.String("path", cfg.Matching.RulesFile))
	case err != nil:
		return nil, fmt.Errorf("load rules: %w", err)
	case fromFile:
		logger.Info("classification rules loaded", zap.String("path", cfg.Matching.RulesFile))
	}

	s := &Service{
		cfg:         cfg,
		embedder:    embedder,
		registry:    registry,
		logger:      logger,
		skills:      NewCorpusIndex("skills", embedder, logger),
		occupations: NewCorpusIndex("occupations", embedder, logger),
		extractor:   NewCandidateExtractor(),
		classifier:  NewClassifier(rules, logger),
	}
	s.skills.SetWorkers(cfg.Matching.Workers)
	s.occupations.SetWorkers(cfg.Matching.Workers)
	s.mapper = NewSemanticMapper(s.skills, logger)
	s.profile = NewProfileMatcher(s.skills, cfg.Matching.ProfileThreshold)
	s.inferencer = NewOccupationInferencer(s.occupations, registry, logger)
	return s, nil
}

// Close releases embedder resources.
func (s *Service) Close() error {
	if s.embedder != nil {
		return s.embedder.Close()
	}
	return nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Warm builds both indices and returns the first failure, including an empty
// corpus. The serve command stops when it fails.
func (s *Service) Warm(ctx context.Context) error {
	if err := s.buildSkills(ctx); err != nil {
		return err
	}
	return s.buildOccupations(ctx)
}

// SkillsReady reports whether the skills index is built, without building it.
func (s *Service) SkillsReady() bool { return s.skills.Ready() }

// OccupationsReady reports whether the occupation index is built, without building it.
func (s *Service) OccupationsReady() bool { return s.occupations.Ready() }

func (s *Service) buildSkills(ctx context.Context) error {
	s.skillsOnce.Do(func() {
		s.skillsErr = s.skills.Build(context.WithoutCancel(ctx), s.registry.AllSkills())
	})
	return s.skillsErr
}

func (s *Service) buildOccupations(ctx context.Context) error {
	s.occupationsOnce.Do(func() {
		s.occupationsErr = s.occupations.Build(context.WithoutCancel(ctx), s.registry.OccupationTitles())
	})
	return s.occupationsErr
}

// ExtractResumeSkills finds candidate skills in text and maps them onto the vocabulary.
func (s *Service) ExtractResumeSkills(ctx context.Context, text string, threshold float64, topK int) (ExtractionResult, error) {
	if err := s.buildSkills(ctx); err != nil {
		return ExtractionResult{}, err
	}
	candidates := s.extractor.Extract(text)
	s.logger.Debug("skill candidates extracted", zap.Strings("candidates", candidates))

	mapped, err := s.mapper.Map(ctx, candidates, threshold, topK)
	if err != nil {
		return ExtractionResult{}, err
	}
	res := ExtractionResult{
		TotalFound: len(candidates),
		MatchRate:  "0%",
		Skills:     mapped,
	}
	for _, m := range mapped {
		if m.Matched() {
			res.SuccessfulMatches++
		}
	}
	if res.TotalFound > 0 {
		res.MatchRate = fmt.Sprintf("%.1f%%", float64(res.SuccessfulMatches)/float64(res.TotalFound)*100)
	}
	return res, nil
}

// CalculateProfileMatch scores candidate skills against requirements. The
// weights are recorded on the result and do not change the score.
func (s *Service) CalculateProfileMatch(ctx context.Context, candidateSkills, requirements []string, weightMatch, weightSimilarity float64) (ProfileMatchResult, error) {
	if len(requirements) == 0 {
		return ProfileMatchResult{}, ErrEmptyRequirements
	}
	if len(candidateSkills) > 0 {
		if err := s.buildSkills(ctx); err != nil {
			return ProfileMatchResult{}, err
		}
	}
	res, err := s.profile.Match(ctx, candidateSkills, requirements)
	if err != nil {
		return ProfileMatchResult{}, err
	}
	res.WeightMatch = weightMatch
	res.WeightSimilarity = weightSimilarity
	return res, nil
}

// InferOccupations ranks the occupations suggested by the résumé text.
func (s *Service) InferOccupations(ctx context.Context, text string, topK int, threshold float64) ([]OccupationResult, error) {
	if err := s.buildOccupations(ctx); err != nil {
		return nil, err
	}
	return s.inferencer.Infer(ctx, text, topK, threshold)
}

// InferPrimaryOccupation returns the single best occupation.
func (s *Service) InferPrimaryOccupation(ctx context.Context, text string, threshold float64) (OccupationResult, error) {
	if err := s.buildOccupations(ctx); err != nil {
		return OccupationResult{}, err
	}
	return s.inferencer.InferPrimary(ctx, text, threshold)
}

// ClassifyResume decides whether an inferred occupation is technical.
func (s *Service) ClassifyResume(res OccupationResult) ResumeType {
	return s.classifier.Classify(res)
}

// AnalyzeResume infers the occupations, classifies the résumé and, for
// technical résumés only, extracts skills.
func (s *Service) AnalyzeResume(ctx context.Context, text string, occupationThreshold, skillThreshold float64, topK int) (ResumeAnalysis, error) {
	occupations, err := s.InferOccupations(ctx, text, topK, occupationThreshold)
	if err != nil {
		return ResumeAnalysis{}, err
	}
	primary := OccupationResult{Confidence: ConfidenceLow, Reason: reasonNoInference}
	if len(occupations) > 0 {
		primary = occupations[0]
	}
	out := ResumeAnalysis{
		ResumeType:        s.classifier.Classify(primary),
		PrimaryOccupation: primary,
		Occupations:       occupations,
	}
	if out.ResumeType != ResumeTechnical {
		out.Note = "non-technical resume, skills were not extracted"
		return out, nil
	}
	skills, err := s.ExtractResumeSkills(ctx, text, skillThreshold, 1)
	if err != nil {
		return ResumeAnalysis{}, err
	}
	out.Skills = &skills
	return out, nil
}

// MatchUnrecognizedSkills finds vocabulary entries for free terms and
// decorates them with synonyms and related occupations. Results are keyed by
// the lower-cased, trimmed term.
func (s *Service) MatchUnrecognizedSkills(ctx context.Context, terms []string, topK int, threshold float64) (map[string]UnrecognizedMatch, error) {
	if err := s.buildSkills(ctx); err != nil {
		return nil, err
	}
	if !s.skills.Ready() {
		return nil, ErrIndexNotReady
	}
	queries := cleanList(terms)
	hitsByQuery := s.skills.BatchFindSimilar(ctx, queries, topK, threshold)

	out := make(map[string]UnrecognizedMatch, len(queries))
	for _, q := range queries {
		hits := hitsByQuery[q]
		matches := make([]EnrichedMatch, 0, len(hits))
		for _, h := range hits {
			synonyms := s.registry.Synonyms(h.Text)
			if len(synonyms) > maxSynonyms {
				synonyms = synonyms[:maxSynonyms]
			}
			related := s.registry.SearchOccupations(h.Text, maxRelatedOccupations)
			matches = append(matches, EnrichedMatch{
				Skill:              h.Text,
				Score:              round4(h.Score),
				Synonyms:           synonyms,
				RelatedOccupations: related,
			})
		}
		out[strings.ToLower(q)] = UnrecognizedMatch{
			Matched:       len(matches) > 0,
			Matches:       matches,
			TotalMatches:  len(matches),
			ThresholdUsed: threshold,
		}
	}
	return out, nil
}

// EnrichSkills looks every skill up loosely and keeps the hits that reach
// confidenceThreshold.
func (s *Service) EnrichSkills(ctx context.Context, skills []string, confidenceThreshold float64) (EnrichmentResult, error) {
	if err := s.buildSkills(ctx); err != nil {
		return EnrichmentResult{}, err
	}
	if !s.skills.Ready() {
		return EnrichmentResult{}, ErrIndexNotReady
	}
	res := EnrichmentResult{
		InputCount:          len(skills),
		Skills:              []EnrichedSkill{},
		ConfidenceThreshold: confidenceThreshold,
	}
	for _, skill := range skills {
		if strings.TrimSpace(skill) == "" {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(skill))
		confident := []Hit{}
		for _, h := range s.skills.FindSimilar(ctx, normalized, enrichSearchTopK, enrichSearchThreshold) {
			if h.Score >= confidenceThreshold {
				confident = append(confident, Hit{Text: h.Text, Score: round4(h.Score)})
			}
		}
		res.Skills = append(res.Skills, EnrichedSkill{
			Original:   skill,
			Normalized: normalized,
			Matches:    confident,
			Recognized: len(confident) > 0,
		})
	}
	return res, nil
}

// SearchOccupationsBySkills collects occupations whose titles contain any of
// the skills, without duplicates, in first-seen order.
func (s *Service) SearchOccupationsBySkills(skills []string, limit int) []OccupationRecord {
	out := []OccupationRecord{}
	seen := make(map[OccupationRecord]struct{})
	for _, skill := range cleanList(skills) {
		for _, occ := range s.registry.SearchOccupations(skill, skillOccupationLimit) {
			if _, ok := seen[occ]; ok {
				continue
			}
			seen[occ] = struct{}{}
			out = append(out, occ)
		}
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Similarity returns the cosine similarity of two texts.
func (s *Service) Similarity(ctx context.Context, a, b string) (float64, error) {
	return s.skills.Similarity(ctx, a, b)
}

// ModelInfo describes the model and the state of both indices.
func (s *Service) ModelInfo() ModelInfo {
	provider := s.cfg.Embedder.Provider
	if p, ok := s.embedder.(interface{ Provider() string }); ok {
		provider = p.Provider()
	}
	return ModelInfo{
		ModelID:         s.embedder.ModelID(),
		Provider:        provider,
		SkillsReady:     s.skills.Ready(),
		SkillsSize:      s.skills.Size(),
		OccupationReady: s.occupations.Ready(),
		OccupationSize:  s.occupations.Size(),
	}
}
