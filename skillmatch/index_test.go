package skillmatch

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCorpusIndexBuildNormalizesAndDeduplicates(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(nil)
	idx := NewCorpusIndex("skills", f, nil)
	err := idx.Build(context.Background(), []string{"  Python ", "python", "", "JAVA   Script", "java script", "Go"})
	require.NoError(t, err)

	assert.True(t, idx.Ready())
	assert.Equal(t, []string{"python", "java script", "go"}, idx.Entries())
	assert.Equal(t, 3, idx.Size())
}

func TestCorpusIndexSelfMatch(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"python": vec(0.9, 0.1, 0.3),
		"java":   vec(0.2, 0.8, 0.1),
		"docker": vec(0.1, 0.2, 0.9),
	})
	idx, err := builtIndex(context.Background(), f, "python", "java", "docker")
	require.NoError(t, err)

	for _, term := range idx.Entries() {
		hits := idx.FindSimilar(context.Background(), term, 1, 0)
		require.Len(t, hits, 1, term)
		assert.Equal(t, term, hits[0].Text)
		assert.GreaterOrEqual(t, hits[0].Score, 0.999)
	}
}

func TestCorpusIndexThresholdIsMonotonic(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"a":     vec(1, 0, 0),
		"b":     vec(0.8, 0.6, 0),
		"c":     vec(0, 1, 0),
		"d":     vec(-1, 0, 0),
		"query": vec(1, 0, 0),
	})
	idx, err := builtIndex(context.Background(), f, "a", "b", "c", "d")
	require.NoError(t, err)

	thresholds := []float64{0, 0.1, 0.5, 0.79, 0.8, 0.9, 1}
	prev := len(idx.Entries()) + 1
	for _, th := range thresholds {
		hits := idx.FindSimilar(context.Background(), "query", math.MaxInt, th)
		assert.LessOrEqual(t, len(hits), prev, "threshold %v", th)
		for _, h := range hits {
			assert.GreaterOrEqual(t, h.Score, th)
		}
		prev = len(hits)
	}
}

func TestCorpusIndexUnboundedTopK(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"python": vec(1, 0),
		"java":   vec(0.8, 0.6),
		"cobol":  vec(0, 1),
	})
	idx, err := builtIndex(context.Background(), f, "python", "java", "cobol")
	require.NoError(t, err)

	hits := idx.FindSimilar(context.Background(), "python", math.MaxInt, 0.5)
	require.Len(t, hits, 2)
	assert.Equal(t, "python", hits[0].Text)
	assert.Equal(t, "java", hits[1].Text)

	batch := idx.BatchFindSimilar(context.Background(), []string{"python"}, math.MaxInt, 0.5)
	assert.Len(t, batch["python"], 2)
}

func TestCorpusIndexScoresAreBounded(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"up":    vec(1, 1, 1),
		"down":  vec(-1, -1, -1),
		"mixed": vec(3, -2, 0.5),
	})
	idx, err := builtIndex(context.Background(), f, "up", "down", "mixed")
	require.NoError(t, err)

	for _, q := range []string{"up", "down", "mixed", "unseen"} {
		for _, h := range idx.FindSimilar(context.Background(), q, 10, 0) {
			assert.GreaterOrEqual(t, h.Score, 0.0)
			assert.LessOrEqual(t, h.Score, 1.0)
		}
	}
	assert.Equal(t, -1.0, cosineSimilarity(vec(1, 1, 1), vec(-1, -1, -1)))
	assert.Equal(t, 0.0, cosineSimilarity(vec(0, 0), vec(1, 1)))
	assert.Equal(t, 0.0, cosineSimilarity(nil, vec(1)))
}

func TestCorpusIndexTiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"first":  vec(1, 0),
		"second": vec(0, 1),
		"third":  vec(1, 0),
		"both":   vec(1, 1),
	})
	idx, err := builtIndex(context.Background(), f, "first", "second", "third")
	require.NoError(t, err)

	hits := idx.FindSimilar(context.Background(), "both", 3, 0.5)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{hits[0].Text, hits[1].Text, hits[2].Text})

	hits = idx.FindSimilar(context.Background(), "both", 2, 0.5)
	assert.Equal(t, []string{"first", "second"}, []string{hits[0].Text, hits[1].Text})
}

func TestCorpusIndexRepeatBuildRejected(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(nil)
	idx, err := builtIndex(context.Background(), f, "alpha", "beta")
	require.NoError(t, err)

	err = idx.Build(context.Background(), []string{"gamma"})
	require.ErrorIs(t, err, ErrAlreadyBuilt)
	assert.Equal(t, []string{"alpha", "beta"}, idx.Entries())
}

func TestCorpusIndexEmptyCorpus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	idx := NewCorpusIndex("skills", newFakeEmbedder(nil), zap.New(core))

	err := idx.Build(context.Background(), []string{" ", ""})
	require.ErrorIs(t, err, ErrCorpusUnavailable)
	assert.False(t, idx.Ready())

	assert.Empty(t, idx.FindSimilar(context.Background(), "python", 5, 0))
	assert.Equal(t, 1, logs.FilterMessage("search on unready index").Len())
}

func TestCorpusIndexBuildPropagatesOracleFailure(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(nil)
	f.failing = true
	idx := NewCorpusIndex("skills", f, nil)

	err := idx.Build(context.Background(), []string{"python"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorpusUnavailable)
	assert.False(t, idx.Ready())
}

func TestCorpusIndexQueryFailureDegrades(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	f := newFakeEmbedder(nil)
	idx := NewCorpusIndex("skills", f, zap.New(core))
	require.NoError(t, idx.Build(context.Background(), []string{"python"}))

	f.mu.Lock()
	f.failing = true
	f.mu.Unlock()

	assert.Empty(t, idx.FindSimilar(context.Background(), "python", 1, 0))
	assert.Equal(t, 1, logs.FilterMessage("query embedding failed").Len())
}

func TestCorpusIndexBatchFindSimilar(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"python": axis(0),
		"java":   axis(1),
		"py":     axis(0),
	})
	idx, err := builtIndex(context.Background(), f, "python", "java")
	require.NoError(t, err)
	idx.SetWorkers(2)

	got := idx.BatchFindSimilar(context.Background(), []string{"py", "java", "cobol"}, 1, 0.5)
	require.Len(t, got, 3)
	require.Len(t, got["py"], 1)
	assert.Equal(t, "python", got["py"][0].Text)
	assert.Equal(t, "java", got["java"][0].Text)
	assert.Empty(t, got["cobol"])
}

func TestCorpusIndexSimilarity(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"python developer":     vec(0.8, 0.6),
		"desenvolvedor python": vec(1, 0),
	})
	idx := NewCorpusIndex("skills", f, nil)

	score, err := idx.Similarity(context.Background(), "Python Developer", "desenvolvedor python")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-6)
}
