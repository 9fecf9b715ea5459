package emb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-embedding-001"
	geminiBatchLimit   = 100
)

// GeminiEncoder delegates embedding to the Gemini API.
type GeminiEncoder struct {
	client *genai.Client
	model  string
	dim    int
}

// NewGeminiEncoder creates a client for the Gemini API backend.
func NewGeminiEncoder(ctx context.Context, apiKey, model string, dim int) (*GeminiEncoder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEncoder{client: client, model: model, dim: dim}, nil
}

// Model returns the embedding model name sent with each request.
func (g *GeminiEncoder) Model() string { return g.model }

// Dimension reports the requested output dimensionality.
func (g *GeminiEncoder) Dimension() int { return g.dim }

// Close is a no-op. The genai client holds no resources to release.
func (g *GeminiEncoder) Close() error { return nil }

// Encode embeds a single text.
func (g *GeminiEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch sends texts in chunks the API accepts and normalizes each result.
func (g *GeminiEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini encoder is not initialized")
	}
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dim > 0 {
		d := int32(g.dim)
		cfg.OutputDimensionality = &d
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))
		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: text}},
			})
		}
		resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			vec := append([]float32(nil), e.Values...)
			Normalize(vec)
			out = append(out, vec)
		}
	}
	return out, nil
}
