package skillmatch

// Confidence grades how much a similarity score can be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ResumeType tells technical résumés apart from the rest.
type ResumeType string

const (
	ResumeTechnical    ResumeType = "technical"
	ResumeNonTechnical ResumeType = "non_technical"
	ResumeUnknown      ResumeType = "unknown"
)

// ProfileLevel is the qualitative reading of a profile match percentage.
type ProfileLevel string

const (
	LevelExcellent    ProfileLevel = "excellent"
	LevelGood         ProfileLevel = "good"
	LevelModerate     ProfileLevel = "moderate"
	LevelLow          ProfileLevel = "low"
	LevelInsufficient ProfileLevel = "insufficient"
)

// VocabularyEntry is one indexed term and its embedding.
type VocabularyEntry struct {
	Text   string
	Vector []float32
}

// Hit is a vocabulary entry returned by a similarity search.
type Hit struct {
	Text  string  `json:"skill"`
	Score float64 `json:"score"`
}

// MatchResult maps one candidate term onto the vocabulary.
type MatchResult struct {
	Original     string     `json:"original"`
	MatchedEntry *string    `json:"matched_skill"`
	Score        float64    `json:"similarity_score"`
	Confidence   Confidence `json:"confidence"`
	Reason       string     `json:"reason,omitempty"`
}

// Matched reports whether a vocabulary entry was found.
func (m MatchResult) Matched() bool {
	return m.MatchedEntry != nil
}

// ExtractionResult summarizes skills found in a résumé.
type ExtractionResult struct {
	TotalFound        int           `json:"total_skills_found"`
	SuccessfulMatches int           `json:"successful_matches"`
	MatchRate         string        `json:"match_rate"`
	Skills            []MatchResult `json:"skills"`
}

// ProfileAnalysis is the human-readable summary of a profile match.
type ProfileAnalysis struct {
	Strengths      string `json:"strengths"`
	Gaps           string `json:"gaps"`
	Recommendation string `json:"recommendation"`
}

// ProfileMatchResult scores a candidate against job requirements.
type ProfileMatchResult struct {
	Score            float64         `json:"match_score"`
	Percentage       int             `json:"match_percentage"`
	Level            ProfileLevel    `json:"level"`
	Matched          []string        `json:"matched_skills"`
	Missing          []string        `json:"missing_skills"`
	Required         []string        `json:"required_skills"`
	Analysis         ProfileAnalysis `json:"analysis"`
	WeightMatch      float64         `json:"weight_match"`
	WeightSimilarity float64         `json:"weight_similarity"`
}

// ProfessionalContext holds the phrases pulled out of a résumé.
type ProfessionalContext struct {
	Formations      []string `json:"formations"`
	Experiences     []string `json:"experiences"`
	Specializations []string `json:"specializations"`
	Keywords        []string `json:"keywords"`
}

// OccupationRecord is a CBO occupation.
type OccupationRecord struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// OccupationResult is a ranked occupation inferred from text.
type OccupationResult struct {
	Title      string     `json:"title"`
	Code       string     `json:"code"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason,omitempty"`
}

// EnrichedMatch is a vocabulary hit decorated with registry data.
type EnrichedMatch struct {
	Skill              string             `json:"matched_skill"`
	Score              float64            `json:"similarity_score"`
	Synonyms           []string           `json:"synonyms"`
	RelatedOccupations []OccupationRecord `json:"related_occupations"`
}

// UnrecognizedMatch collects the hits for one unrecognized term.
type UnrecognizedMatch struct {
	Matched       bool            `json:"matched"`
	Matches       []EnrichedMatch `json:"matches"`
	TotalMatches  int             `json:"total_matches"`
	ThresholdUsed float64         `json:"threshold_used"`
}

// EnrichedSkill is one skill of an enriched profile.
type EnrichedSkill struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Matches    []Hit  `json:"high_confidence_matches"`
	Recognized bool   `json:"is_recognized"`
}

// EnrichmentResult is the outcome of enriching a skills profile.
type EnrichmentResult struct {
	InputCount          int             `json:"input_skills_count"`
	Skills              []EnrichedSkill `json:"skills_processed"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
}

// ModelInfo describes the embedding model and the corpora built on it.
type ModelInfo struct {
	ModelID         string `json:"model_name"`
	Provider        string `json:"provider"`
	SkillsReady     bool   `json:"model_ready"`
	SkillsSize      int    `json:"corpus_size"`
	OccupationReady bool   `json:"occupation_corpus_ready"`
	OccupationSize  int    `json:"occupation_corpus_size"`
}

// ResumeAnalysis is the combined occupation and skills reading of a résumé.
type ResumeAnalysis struct {
	ResumeType        ResumeType         `json:"resume_type"`
	PrimaryOccupation OccupationResult   `json:"primary_occupation"`
	Occupations       []OccupationResult `json:"occupations"`
	Skills            *ExtractionResult  `json:"skills,omitempty"`
	Note              string             `json:"note,omitempty"`
}
