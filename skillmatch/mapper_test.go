package skillmatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticMapperMap(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"python":  vec(1, 0),
		"java":    vec(0, 1),
		"pyhton":  vec(1, 0.7),
		"python3": vec(1, 0),
	})
	idx, err := builtIndex(context.Background(), f, "python", "java")
	require.NoError(t, err)

	m := NewSemanticMapper(idx, nil)
	got, err := m.Map(context.Background(), []string{"Python3", "  ", "pyhton", "cobol"}, 0.75, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Python3", got[0].Original)
	require.True(t, got[0].Matched())
	assert.Equal(t, "python", *got[0].MatchedEntry)
	assert.Equal(t, ConfidenceHigh, got[0].Confidence)

	assert.Equal(t, "pyhton", got[1].Original)
	require.True(t, got[1].Matched())
	assert.Equal(t, ConfidenceMedium, got[1].Confidence)
	assert.InDelta(t, 0.819, got[1].Score, 1e-3)

	assert.Equal(t, "cobol", got[2].Original)
	assert.False(t, got[2].Matched())
	assert.Zero(t, got[2].Score)
	assert.Equal(t, ConfidenceLow, got[2].Confidence)
	assert.Equal(t, "no match above threshold", got[2].Reason)
}

func TestSemanticMapperIndexNotReady(t *testing.T) {
	t.Parallel()

	idx := NewCorpusIndex("skills", newFakeEmbedder(nil), nil)
	_, err := NewSemanticMapper(idx, nil).Map(context.Background(), []string{"python"}, 0.5, 1)
	require.ErrorIs(t, err, ErrIndexNotReady)
}
