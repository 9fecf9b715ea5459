package skillmatch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CorpusIndex is a brute-force cosine index over a fixed vocabulary. It is
// built once and read-only afterwards.
type CorpusIndex struct {
	name     string
	embedder Embedder
	logger   *zap.Logger
	workers  int

	mu      sync.RWMutex
	built   bool
	entries []VocabularyEntry
}

// NewCorpusIndex returns an empty index that embeds through embedder.
func NewCorpusIndex(name string, embedder Embedder, logger *zap.Logger) *CorpusIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusIndex{
		name:     name,
		embedder: embedder,
		logger:   logger.With(zap.String("corpus", name)),
		workers:  4,
	}
}

// SetWorkers bounds the concurrency of BatchFindSimilar.
func (idx *CorpusIndex) SetWorkers(n int) {
	if n > 0 {
		idx.workers = n
	}
}

// Build normalizes and deduplicates rawTerms, embeds them and stores the
// result. Once built, the index rejects further calls with ErrAlreadyBuilt
// and keeps its vocabulary.
func (idx *CorpusIndex) Build(ctx context.Context, rawTerms []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return ErrAlreadyBuilt
	}

	terms := make([]string, 0, len(rawTerms))
	seen := make(map[string]struct{}, len(rawTerms))
	for _, raw := range rawTerms {
		term := NormalizeKey(raw)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		idx.logger.Error("corpus is empty, index left unready")
		return fmt.Errorf("build %s index: %w", idx.name, ErrCorpusUnavailable)
	}

	idx.logger.Info("building corpus index", zap.Int("terms", len(terms)), zap.String("model", idx.embedder.ModelID()))
	vecs, err := idx.embedder.EmbedTexts(ctx, terms)
	if err != nil {
		return fmt.Errorf("embed %s corpus: %w", idx.name, err)
	}
	if len(vecs) != len(terms) {
		return fmt.Errorf("embed %s corpus: got %d vectors for %d terms", idx.name, len(vecs), len(terms))
	}

	entries := make([]VocabularyEntry, len(terms))
	for i, term := range terms {
		entries[i] = VocabularyEntry{Text: term, Vector: vecs[i]}
	}
	idx.entries = entries
	idx.built = true
	idx.logger.Info("corpus index ready", zap.Int("size", len(entries)))
	return nil
}

// Ready reports whether Build completed with a non-empty vocabulary.
func (idx *CorpusIndex) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built && len(idx.entries) > 0
}

// Size returns the number of indexed terms.
func (idx *CorpusIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Entries returns the indexed terms in insertion order.
func (idx *CorpusIndex) Entries() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.Text
	}
	return out
}

// FindSimilar returns up to topK entries scoring at least threshold against
// query, best first. Ties keep insertion order. An unready index or a failed
// query embedding yields no hits.
func (idx *CorpusIndex) FindSimilar(ctx context.Context, query string, topK int, threshold float64) []Hit {
	if !idx.Ready() {
		idx.logger.Warn("search on unready index", zap.String("query", query))
		return nil
	}
	if topK < 1 {
		return nil
	}
	q := NormalizeKey(query)
	if q == "" {
		return nil
	}
	vec, err := idx.embedder.EmbedText(ctx, q)
	if err != nil {
		idx.logger.Warn("query embedding failed", zap.String("query", q), zap.Error(err))
		return nil
	}

	idx.mu.RLock()
	entries := idx.entries
	idx.mu.RUnlock()

	hits := make([]Hit, 0, min(topK, len(entries)))
	for _, e := range entries {
		score := cosineSimilarity(vec, e.Vector)
		if score >= threshold {
			hits = append(hits, Hit{Text: e.Text, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// BatchFindSimilar runs FindSimilar for every query with bounded concurrency.
func (idx *CorpusIndex) BatchFindSimilar(ctx context.Context, queries []string, topK int, threshold float64) map[string][]Hit {
	results := make([][]Hit, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = idx.FindSimilar(gctx, q, topK, threshold)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]Hit, len(queries))
	for i, q := range queries {
		out[q] = results[i]
	}
	return out
}

// Similarity embeds a and b and returns their cosine similarity.
func (idx *CorpusIndex) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := idx.embedder.EmbedTexts(ctx, []string{NormalizeKey(a), NormalizeKey(b)})
	if err != nil {
		return 0, fmt.Errorf("embed pair: %w", err)
	}
	return cosineSimilarity(vecs[0], vecs[1]), nil
}

// cosineSimilarity accumulates in float64 and clamps to [-1, 1].
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, score))
}
