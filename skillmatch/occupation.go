package skillmatch

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	phraseClass = `([\p{L}\s\-]+?)`
	phraseEnd   = `[.,\n]`

	keywordSearchTopK = 10
	reasonNoInference = "no occupation inferred"
)

var (
	formationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:graduad[oa]?|bacharel|tecnólogo|formad[oa]?|cursando|graduated|bachelor|degree)\s+(?:em|de|in)\s+` + phraseClass + phraseEnd),
		regexp.MustCompile(`(?i)(?:pós-graduação|especialização|mestrado|doutorado|mba|certificad[oa]?|extensão|master|phd|certificate)\s+(?:em|de|in)\s+` + phraseClass + phraseEnd),
		regexp.MustCompile(`(?i)` + phraseClass + `\s+(?:bacharel|tecnólogo|especialista|mestre|doutor)`),
	}
	experiencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s*(?:anos?|meses|years?|months?)\s+(?:(?:de|of)\s+)?(?:experiência|atuação|trabalho|experience)\s+(?:com|em|como|with|in|as)\s+` + phraseClass + phraseEnd),
		regexp.MustCompile(`(?i)(?:trabalhei?|atuei?|worked)\s+(?:como|de|em|as)\s+` + phraseClass + phraseEnd),
		regexp.MustCompile(`(?i)(?:experiência|expertise|experience)\s+(?:em|com|in|with)\s+` + phraseClass + phraseEnd),
	}
	specializationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:especialist|especializ|specializ|specialist)\p{L}*\s+(?:em|de|in)\s+` + phraseClass + phraseEnd),
		regexp.MustCompile(`(?i)(?:especialidades?|área|area)\s+(?:em|de|of)\s+` + phraseClass + phraseEnd),
	}
)

// ExtractContext pulls formation, experience and specialization phrases out of
// a résumé. Keywords is their union without duplicates, in first-seen order.
func ExtractContext(text string) ProfessionalContext {
	lower := strings.ToLower(text)
	ctx := ProfessionalContext{
		Formations:      capturePhrases(lower, formationPatterns),
		Experiences:     capturePhrases(lower, experiencePatterns),
		Specializations: capturePhrases(lower, specializationPatterns),
	}
	all := make([]string, 0, len(ctx.Formations)+len(ctx.Experiences)+len(ctx.Specializations))
	all = append(all, ctx.Formations...)
	all = append(all, ctx.Experiences...)
	all = append(all, ctx.Specializations...)
	ctx.Keywords = dedupeFold(all)
	return ctx
}

func capturePhrases(text string, patterns []*regexp.Regexp) []string {
	out := []string{}
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			phrase := strings.TrimSpace(m[1])
			if n := utf8.RuneCountInString(phrase); n > 3 && n < 100 {
				out = append(out, phrase)
			}
		}
	}
	return out
}

// OccupationInferencer ranks occupations by the mean similarity of the
// résumé's context phrases to occupation titles.
type OccupationInferencer struct {
	index    *CorpusIndex
	registry *Registry
	logger   *zap.Logger
}

// NewOccupationInferencer ranks occupations from the occupation index and
// resolves their CBO codes through registry.
func NewOccupationInferencer(index *CorpusIndex, registry *Registry, logger *zap.Logger) *OccupationInferencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupationInferencer{index: index, registry: registry, logger: logger}
}

// Infer returns up to topK occupations, best first.
func (o *OccupationInferencer) Infer(ctx context.Context, text string, topK int, threshold float64) ([]OccupationResult, error) {
	if o.index == nil || !o.index.Ready() {
		return nil, ErrIndexNotReady
	}
	pc := ExtractContext(text)
	o.logger.Debug("professional context extracted",
		zap.Int("formations", len(pc.Formations)),
		zap.Int("experiences", len(pc.Experiences)),
		zap.Int("specializations", len(pc.Specializations)),
	)
	if len(pc.Keywords) == 0 {
		o.logger.Info("no professional context found")
		return []OccupationResult{}, nil
	}

	var order []string
	scores := make(map[string][]float64)
	for _, kw := range pc.Keywords {
		if utf8.RuneCountInString(strings.TrimSpace(kw)) < 3 {
			continue
		}
		for _, hit := range o.index.FindSimilar(ctx, kw, keywordSearchTopK, threshold) {
			if _, ok := scores[hit.Text]; !ok {
				order = append(order, hit.Text)
			}
			scores[hit.Text] = append(scores[hit.Text], hit.Score)
		}
	}

	results := make([]OccupationResult, 0, len(order))
	for _, title := range order {
		var sum float64
		for _, s := range scores[title] {
			sum += s
		}
		mean := sum / float64(len(scores[title]))
		code := ""
		if o.registry != nil {
			code = o.registry.CodeForTitle(title)
		}
		results = append(results, OccupationResult{
			Title:      title,
			Code:       code,
			Score:      round4(mean),
			Confidence: occupationConfidence(mean),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// InferPrimary returns the best occupation, or a low-confidence sentinel with
// an empty title when nothing was inferred.
func (o *OccupationInferencer) InferPrimary(ctx context.Context, text string, threshold float64) (OccupationResult, error) {
	results, err := o.Infer(ctx, text, 1, threshold)
	if err != nil {
		return OccupationResult{}, err
	}
	if len(results) == 0 {
		return OccupationResult{Confidence: ConfidenceLow, Reason: reasonNoInference}, nil
	}
	return results[0], nil
}

func occupationConfidence(score float64) Confidence {
	switch {
	case score > 0.80:
		return ConfidenceHigh
	case score > 0.70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
