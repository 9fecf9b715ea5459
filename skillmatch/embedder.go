package skillmatch

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"yashubustudio/occumatch/emb"
)

// Embedding providers understood by NewEmbedder.
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// Embedder exposes the minimal surface required by the index and service.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
	ModelID() string
}

// Encoder is a raw text-to-vector model without caching.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// NewEncoder builds the encoder named by cfg.Provider.
func NewEncoder(ctx context.Context, cfg EmbedderConfig) (Encoder, error) {
	switch cfg.Provider {
	case "", ProviderONNX:
		enc := &emb.Encoder{}
		if err := enc.Init(emb.Config{
			OrtDLL:        cfg.OrtDLL,
			ModelPath:     cfg.ModelPath,
			TokenizerPath: cfg.TokenizerPath,
			MaxSeqLen:     cfg.MaxSeqLen,
			Dimension:     cfg.Dimension,
		}); err != nil {
			return nil, err
		}
		return enc, nil
	case ProviderGemini:
		return emb.NewGeminiEncoder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Dimension)
	case ProviderHash:
		return emb.NewHashEncoder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}

// CachedEmbedder wraps an Encoder with memory, disk and optional redis caches.
type CachedEmbedder struct {
	enc      Encoder
	cfg      EmbedderConfig
	remote   *remoteCache
	logger   *zap.Logger
	memCache map[string][]float32
	mu       sync.RWMutex
}

// NewEmbedder initializes the configured encoder and prepares its caches.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig, logger *zap.Logger) (*CachedEmbedder, error) {
	enc, err := NewEncoder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s encoder: %w", cfg.Provider, err)
	}
	cached, err := WrapEncoder(ctx, enc, cfg, logger)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return cached, nil
}

// WrapEncoder adds caching to an already constructed encoder.
func WrapEncoder(ctx context.Context, enc Encoder, cfg EmbedderConfig, logger *zap.Logger) (*CachedEmbedder, error) {
	if enc == nil {
		return nil, errors.New("encoder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(cfg.ModelPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &CachedEmbedder{
		enc:      enc,
		cfg:      cfg,
		remote:   newRemoteCache(ctx, cfg.RedisURL, cfg.RedisTTL, logger),
		logger:   logger,
		memCache: make(map[string][]float32),
	}, nil
}

// Close releases the encoder and the redis connection.
func (c *CachedEmbedder) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.enc != nil {
		err = c.enc.Close()
		c.enc = nil
	}
	if c.remote != nil {
		c.remote.close()
	}
	c.memCache = nil
	return err
}

// ModelID returns the identifier used for cache keys.
func (c *CachedEmbedder) ModelID() string {
	return c.cfg.ModelID
}

// Provider returns the configured backend name.
func (c *CachedEmbedder) Provider() string {
	if c.cfg.Provider == "" {
		return ProviderONNX
	}
	return c.cfg.Provider
}

// EmbedText embeds a single string with caching.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts, encoding only cache misses and doing so in batches.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.RLock()
	enc := c.enc
	c.mu.RUnlock()
	if enc == nil {
		return nil, errors.New("embedder is not initialized")
	}

	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	normalized := make([]string, len(texts))
	var missing []int
	for i, t := range texts {
		normalized[i] = NormalizeText(t)
		keys[i] = c.cacheKey(normalized[i])
		if vec := c.lookup(ctx, keys[i]); vec != nil {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(missing))
		chunk := missing[start:end]
		batch := make([]string, len(chunk))
		for j, idx := range chunk {
			batch[j] = normalized[idx]
		}
		vecs, err := enc.EncodeBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("encode batch: %w", err)
		}
		if len(vecs) != len(chunk) {
			return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vecs), len(chunk))
		}
		for j, idx := range chunk {
			c.store(ctx, keys[idx], vecs[j])
			out[idx] = cloneVector(vecs[j])
		}
	}
	return out, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) []float32 {
	if vec := c.getFromCache(key); vec != nil {
		return vec
	}
	if vec, err := c.loadFromDisk(key); err == nil {
		c.storeInMemory(key, vec)
		return cloneVector(vec)
	}
	if vec := c.remote.get(ctx, key); vec != nil {
		c.storeInMemory(key, vec)
		if err := c.saveToDisk(key, vec); err != nil {
			c.logger.Debug("disk cache write failed", zap.Error(err))
		}
		return cloneVector(vec)
	}
	return nil
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	c.storeInMemory(key, vec)
	if err := c.saveToDisk(key, vec); err != nil {
		c.logger.Debug("disk cache write failed", zap.Error(err))
	}
	c.remote.set(ctx, key, vec)
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, c.cfg.ModelID)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) getFromCache(key string) []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if vec, ok := c.memCache[key]; ok {
		return cloneVector(vec)
	}
	return nil
}

func (c *CachedEmbedder) storeInMemory(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.memCache != nil {
		c.memCache[key] = cloneVector(vec)
	}
}

func (c *CachedEmbedder) loadFromDisk(key string) ([]float32, error) {
	if c.cfg.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	path := filepath.Join(c.cfg.CacheDir, key+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return vec, nil
}

func (c *CachedEmbedder) saveToDisk(key string, vec []float32) error {
	if c.cfg.CacheDir == "" {
		return nil
	}
	path := filepath.Join(c.cfg.CacheDir, key+".bin")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encodeVector(vec), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// encodeVector lays out a little-endian length prefix followed by float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, errors.New("cached vector too small")
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]
	if len(data) != length*4 {
		return nil, errors.New("cached vector length mismatch")
	}
	vec := make([]float32, length)
	for i := 0; i < length; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return vec, nil
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
