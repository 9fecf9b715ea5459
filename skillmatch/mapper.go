package skillmatch

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	highConfidenceScore = 0.85
	reasonNoMatch       = "no match above threshold"
)

// SemanticMapper maps candidate terms onto the best vocabulary entry.
type SemanticMapper struct {
	index  *CorpusIndex
	logger *zap.Logger
}

// NewSemanticMapper maps unrecognized terms against the skill index.
func NewSemanticMapper(index *CorpusIndex, logger *zap.Logger) *SemanticMapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticMapper{index: index, logger: logger}
}

// Map returns one result per non-blank candidate, in input order.
func (m *SemanticMapper) Map(ctx context.Context, candidates []string, threshold float64, topK int) ([]MatchResult, error) {
	if m.index == nil || !m.index.Ready() {
		return nil, ErrIndexNotReady
	}
	out := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, m.mapOne(ctx, c, threshold, topK))
	}
	matched := 0
	for _, r := range out {
		if r.Matched() {
			matched++
		}
	}
	m.logger.Debug("mapped candidates", zap.Int("candidates", len(out)), zap.Int("matched", matched))
	return out, nil
}

func (m *SemanticMapper) mapOne(ctx context.Context, candidate string, threshold float64, topK int) MatchResult {
	hits := m.index.FindSimilar(ctx, candidate, topK, threshold)
	if len(hits) == 0 {
		return MatchResult{
			Original:   candidate,
			Confidence: ConfidenceLow,
			Reason:     reasonNoMatch,
		}
	}
	best := hits[0]
	conf := ConfidenceMedium
	if best.Score > highConfidenceScore {
		conf = ConfidenceHigh
	}
	entry := best.Text
	return MatchResult{
		Original:     candidate,
		MatchedEntry: &entry,
		Score:        best.Score,
		Confidence:   conf,
	}
}
