package skillmatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/occumatch/emb"
)

// countingEncoder records every batch it is asked to encode.
type countingEncoder struct {
	mu      sync.Mutex
	inner   *emb.HashEncoder
	batches [][]string
	closed  bool
}

func newCountingEncoder() *countingEncoder {
	return &countingEncoder{inner: emb.NewHashEncoder(32)}
}

func (c *countingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	return c.inner.Encode(ctx, text)
}

func (c *countingEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	c.mu.Unlock()
	return c.inner.EncodeBatch(ctx, texts)
}

func (c *countingEncoder) Close() error {
	c.closed = true
	return nil
}

func (c *countingEncoder) encoded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func TestCachedEmbedderEncodesOnlyMisses(t *testing.T) {
	t.Parallel()

	enc := newCountingEncoder()
	e, err := WrapEncoder(context.Background(), enc, EmbedderConfig{ModelID: "hash-32"}, nil)
	require.NoError(t, err)

	first, err := e.EmbedTexts(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	_, err = e.EmbedTexts(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, enc.encoded())

	again, err := e.EmbedText(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, first[0], again)
}

func TestCachedEmbedderDiskTier(t *testing.T) {
	t.Parallel()

	cfg := EmbedderConfig{ModelID: "hash-32", CacheDir: t.TempDir()}

	warm := newCountingEncoder()
	e1, err := WrapEncoder(context.Background(), warm, cfg, nil)
	require.NoError(t, err)
	want, err := e1.EmbedText(context.Background(), "desenvolvedor python")
	require.NoError(t, err)

	cold := newCountingEncoder()
	e2, err := WrapEncoder(context.Background(), cold, cfg, nil)
	require.NoError(t, err)
	got, err := e2.EmbedText(context.Background(), "desenvolvedor python")
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Empty(t, cold.encoded())
}

func TestCachedEmbedderModelIDSeparatesEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := WrapEncoder(context.Background(), newCountingEncoder(), EmbedderConfig{ModelID: "a", CacheDir: dir}, nil)
	require.NoError(t, err)
	_, err = a.EmbedText(context.Background(), "python")
	require.NoError(t, err)

	enc := newCountingEncoder()
	b, err := WrapEncoder(context.Background(), enc, EmbedderConfig{ModelID: "b", CacheDir: dir}, nil)
	require.NoError(t, err)
	_, err = b.EmbedText(context.Background(), "python")
	require.NoError(t, err)

	assert.Equal(t, []string{"python"}, enc.encoded())
}

func TestCachedEmbedderBatchesMisses(t *testing.T) {
	t.Parallel()

	enc := newCountingEncoder()
	e, err := WrapEncoder(context.Background(), enc, EmbedderConfig{BatchSize: 2}, nil)
	require.NoError(t, err)

	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vecs, 5)

	enc.mu.Lock()
	defer enc.mu.Unlock()
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, enc.batches)
}

func TestCachedEmbedderClose(t *testing.T) {
	t.Parallel()

	enc := newCountingEncoder()
	e, err := WrapEncoder(context.Background(), enc, EmbedderConfig{Provider: ProviderHash}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderHash, e.Provider())

	require.NoError(t, e.Close())
	assert.True(t, enc.closed)

	_, err = e.EmbedText(context.Background(), "python")
	require.Error(t, err)
}

func TestNewEmbedderHashProvider(t *testing.T) {
	t.Parallel()

	e, err := NewEmbedder(context.Background(), EmbedderConfig{Provider: ProviderHash, Dimension: 64, ModelID: "hash"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	v, err := e.EmbedText(context.Background(), "Kubernetes")
	require.NoError(t, err)
	assert.Len(t, v, 64)

	_, err = NewEmbedder(context.Background(), EmbedderConfig{Provider: "word2vec"}, nil)
	require.Error(t, err)
}

func TestRemoteCacheDisabled(t *testing.T) {
	t.Parallel()

	assert.Nil(t, newRemoteCache(context.Background(), "", 0, nil))

	var r *remoteCache
	assert.Nil(t, r.get(context.Background(), "k"))
	r.set(context.Background(), "k", []float32{1})
	r.close()
}

func TestDecodeVectorRejectsCorruptData(t *testing.T) {
	t.Parallel()

	_, err := decodeVector([]byte{1, 2})
	require.Error(t, err)

	data := encodeVector([]float32{1, 2, 3})
	_, err = decodeVector(data[:len(data)-1])
	require.Error(t, err)
}
