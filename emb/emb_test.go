package emb

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestMeanPoolIgnoresPadding(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	got := MeanPool(hidden, []int64{1, 1, 0}, 2)
	assert.Equal(t, []float32{2, 3}, got)

	zero := MeanPool(hidden, []int64{0, 0, 0}, 2)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestNormalize(t *testing.T) {
	vec := []float32{3, 4}
	Normalize(vec)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestHashEncoderDeterministic(t *testing.T) {
	t.Parallel()
	enc := NewHashEncoder(128)
	ctx := context.Background()

	a, err := enc.Encode(ctx, "Desenvolvedor Python")
	require.NoError(t, err)
	b, err := enc.Encode(ctx, "desenvolvedor python")
	require.NoError(t, err)
	require.Len(t, a, 128)
	assert.InDelta(t, 1.0, cosine(a, b), 1e-6)

	other, err := enc.Encode(ctx, "enfermeiro")
	require.NoError(t, err)
	assert.Less(t, cosine(a, other), 0.9)
}

func TestHashEncoderBatchMatchesSingle(t *testing.T) {
	t.Parallel()
	enc := NewHashEncoder(0)
	require.Equal(t, defaultHashDimension, enc.Dimension())
	ctx := context.Background()

	batch, err := enc.EncodeBatch(ctx, []string{"go", "kubernetes"})
	require.NoError(t, err)
	single, err := enc.Encode(ctx, "kubernetes")
	require.NoError(t, err)
	assert.Equal(t, single, batch[1])
}

func TestHashEncoderEmptyText(t *testing.T) {
	vec, err := NewHashEncoder(16).Encode(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestHashEncoderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEncoder(16).Encode(ctx, "python")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncateTokensKeepsLastToken(t *testing.T) {
	assert.Equal(t, []int{101, 7, 102}, truncateTokens([]int{101, 7, 8, 9, 102}, 3))
	assert.Equal(t, []int{1, 2}, truncateTokens([]int{1, 2}, 3))
}

func TestPadTokens(t *testing.T) {
	got := padTokens([][]int{{1, 2, 3}, {4}}, 3)
	assert.Equal(t, []int64{1, 2, 3, 4, 0, 0}, got)
}
