package emb

import (
	"context"
	"strings"
	"unicode"
)

const defaultHashDimension = 256

// HashEncoder is a model-free encoder built on feature hashing of word tokens
// and character trigrams. Identical texts always map to identical vectors, so
// it works offline and in tests.
type HashEncoder struct {
	dim int
}

// NewHashEncoder returns an encoder producing vectors of width dim.
func NewHashEncoder(dim int) *HashEncoder {
	if dim <= 0 {
		dim = defaultHashDimension
	}
	return &HashEncoder{dim: dim}
}

// Dimension reports the vector length.
func (h *HashEncoder) Dimension() int { return h.dim }

// Close is a no-op.
func (h *HashEncoder) Close() error { return nil }

// Encode embeds text. Text without letters or digits yields a zero vector.
func (h *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		vec[fnv32(tok)%uint32(h.dim)] += 1
		padded := []rune(" " + tok + " ")
		for i := 0; i+3 <= len(padded); i++ {
			vec[fnv32(string(padded[i:i+3]))%uint32(h.dim)] += 0.5
		}
	}
	Normalize(vec)
	return vec, nil
}

func (h *HashEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := h.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	var h uint32 = offset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
