package skillmatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// RuleSet is the editable form of the résumé type rules.
type RuleSet struct {
	Technical      []string `json:"technical"`
	NonTechnical   []string `json:"non_technical"`
	ScoreThreshold float64  `json:"score_threshold"`
}

// DefaultRuleSet returns the built-in keyword lists.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Technical: []string{
			"desenvolvedor", "programmer", "engineer", "engenheiro", "analista",
			"administrador", "devops", "arquiteto", "data", "cientista",
			"especialista em", "técnico", "operacional", "sre", "infra",
			"programador", "web", "mobile", "fullstack", "backend", "frontend",
			"qa", "tester", "segurança da informação", "iot", "cloud",
			"banco de dados", "database", "sistemas", "ti", "tecnologia",
			"software", "hardware", "network", "suporte técnico",
		},
		NonTechnical: []string{
			"médico", "advogado", "enfermeiro", "psicólogo", "odontólogo",
			"professor", "educador", "contador", "auditor", "consultor",
			"gerente", "diretor", "presidente", "cfo", "ceo", "rh",
			"recursos humanos", "recrutador", "analista de rh", "vendedor",
			"comercial", "vendas", "marketing", "designer gráfico", "designer",
			"arquiteto", "engenheiro civil", "agrônomo", "veterinário",
			"cardiologista", "dermatologista", "psiquiatra", "cirurgião",
		},
		ScoreThreshold: 0.75,
	}
}

// Merge overlays the non-empty parts of override on r.
func (r RuleSet) Merge(override RuleSet) RuleSet {
	out := RuleSet{
		Technical:      append([]string(nil), r.Technical...),
		NonTechnical:   append([]string(nil), r.NonTechnical...),
		ScoreThreshold: r.ScoreThreshold,
	}
	if override.Technical != nil {
		out.Technical = append([]string(nil), override.Technical...)
	}
	if override.NonTechnical != nil {
		out.NonTechnical = append([]string(nil), override.NonTechnical...)
	}
	if override.ScoreThreshold > 0 {
		out.ScoreThreshold = override.ScoreThreshold
	}
	return out
}

// LoadRuleSet merges the JSON file at path over the defaults. An empty path
// returns the defaults; the boolean reports whether a file was applied.
func LoadRuleSet(path string) (RuleSet, bool, error) {
	defaults := DefaultRuleSet()
	clean := strings.TrimSpace(path)
	if clean == "" {
		return defaults, false, nil
	}
	data, err := os.ReadFile(filepath.Clean(clean))
	if err != nil {
		return defaults, false, err
	}
	var override RuleSet
	if err := json.Unmarshal(data, &override); err != nil {
		return defaults, false, fmt.Errorf("decode rules file: %w", err)
	}
	return defaults.Merge(override), true, nil
}

// EnsureRuleFile writes the default rules to path when it does not exist yet,
// giving users a starting point to edit.
func EnsureRuleFile(path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return nil
	}
	clean = filepath.Clean(clean)
	if _, err := os.Stat(clean); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat rules file: %w", err)
	}
	if dir := filepath.Dir(clean); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create rules dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(DefaultRuleSet(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := os.WriteFile(clean, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	return nil
}

// ClassificationRule maps a predicate over an inferred occupation to a type.
type ClassificationRule struct {
	Name    string
	Outcome ResumeType
	Match   func(title string, score float64) bool
}

// Classifier evaluates its rules in order; the first match decides.
type Classifier struct {
	rules  []ClassificationRule
	logger *zap.Logger
}

// NewClassifier compiles rs into technical keyword rules, then non-technical
// keyword rules, then a score fallback.
func NewClassifier(rs RuleSet, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rs.ScoreThreshold <= 0 {
		rs.ScoreThreshold = DefaultRuleSet().ScoreThreshold
	}
	var rules []ClassificationRule
	for _, kw := range normalizeKeywordList(rs.Technical) {
		rules = append(rules, keywordRule(kw, ResumeTechnical))
	}
	for _, kw := range normalizeKeywordList(rs.NonTechnical) {
		rules = append(rules, keywordRule(kw, ResumeNonTechnical))
	}
	threshold := rs.ScoreThreshold
	rules = append(rules, ClassificationRule{
		Name:    "score",
		Outcome: ResumeTechnical,
		Match:   func(_ string, score float64) bool { return score > threshold },
	})
	return &Classifier{rules: rules, logger: logger}
}

func keywordRule(kw string, outcome ResumeType) ClassificationRule {
	return ClassificationRule{
		Name:    kw,
		Outcome: outcome,
		Match:   func(title string, _ float64) bool { return containsKeyword(title, kw) },
	}
}

// Classify decides the résumé type from its primary occupation.
func (c *Classifier) Classify(res OccupationResult) ResumeType {
	title := strings.ToLower(strings.TrimSpace(res.Title))
	if title == "" {
		return ResumeUnknown
	}
	for _, rule := range c.rules {
		if rule.Match(title, res.Score) {
			c.logger.Debug("resume type decided", zap.String("rule", rule.Name), zap.String("type", string(rule.Outcome)))
			return rule.Outcome
		}
	}
	return ResumeNonTechnical
}

func normalizeKeywordList(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// containsKeyword reports whether kw occurs anywhere in the lowercased title.
func containsKeyword(text, kw string) bool {
	return kw != "" && strings.Contains(text, kw)
}
