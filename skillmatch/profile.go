package skillmatch

import (
	"context"
	"fmt"
	"strings"
)

const defaultProfileThreshold = 0.70

// ProfileMatcher scores candidate skills against job requirements.
type ProfileMatcher struct {
	index     *CorpusIndex
	threshold float64
}

// NewProfileMatcher uses threshold for the semantic fallback; zero means 0.70.
func NewProfileMatcher(index *CorpusIndex, threshold float64) *ProfileMatcher {
	if threshold <= 0 {
		threshold = defaultProfileThreshold
	}
	return &ProfileMatcher{index: index, threshold: threshold}
}

// Match scores each requirement in order. A requirement counts fully when it
// contains, or is contained in, a candidate skill; otherwise it counts with
// its similarity when its nearest vocabulary entry is itself a candidate skill.
func (p *ProfileMatcher) Match(ctx context.Context, candidateSkills, requirements []string) (ProfileMatchResult, error) {
	if len(requirements) == 0 {
		return ProfileMatchResult{}, ErrEmptyRequirements
	}
	required := append([]string(nil), requirements...)
	if len(candidateSkills) == 0 {
		return buildProfileResult(0, nil, required, required), nil
	}

	lowered := make([]string, len(candidateSkills))
	known := make(map[string]struct{}, len(candidateSkills))
	for i, s := range candidateSkills {
		lowered[i] = strings.ToLower(s)
		known[lowered[i]] = struct{}{}
	}

	var (
		sum     float64
		matched []string
		missing []string
	)
	for _, req := range requirements {
		reqLower := strings.ToLower(req)
		if containsEither(reqLower, lowered) {
			matched = append(matched, req)
			sum += 1.0
			continue
		}
		var hits []Hit
		if p.index != nil {
			hits = p.index.FindSimilar(ctx, req, 1, p.threshold)
		}
		if len(hits) > 0 {
			if _, ok := known[strings.ToLower(hits[0].Text)]; ok {
				matched = append(matched, req)
				sum += hits[0].Score
				continue
			}
		}
		missing = append(missing, req)
	}
	return buildProfileResult(sum/float64(len(requirements)), matched, missing, required), nil
}

func containsEither(req string, skills []string) bool {
	for _, s := range skills {
		if strings.Contains(s, req) || strings.Contains(req, s) {
			return true
		}
	}
	return false
}

func buildProfileResult(score float64, matched, missing, required []string) ProfileMatchResult {
	pct := min(100, int(score*100))
	res := ProfileMatchResult{
		Score:      score,
		Percentage: pct,
		Level:      LevelFor(pct),
		Matched:    nonNil(matched),
		Missing:    nonNil(missing),
		Required:   required,
	}
	res.Analysis = ProfileAnalysis{
		Strengths: fmt.Sprintf("has %d of %d required skills", len(res.Matched), len(required)),
		Gaps:      fmt.Sprintf("missing %d skills", len(res.Missing)),
	}
	if pct >= 75 {
		res.Analysis.Recommendation = "strong candidate"
	} else {
		res.Analysis.Recommendation = "developing candidate"
	}
	return res
}

// LevelFor grades a match percentage.
func LevelFor(pct int) ProfileLevel {
	switch {
	case pct >= 90:
		return LevelExcellent
	case pct >= 75:
		return LevelGood
	case pct >= 60:
		return LevelModerate
	case pct >= 40:
		return LevelLow
	default:
		return LevelInsufficient
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
