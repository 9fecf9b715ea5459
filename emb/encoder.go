// Package emb turns text into sentence embeddings.
package emb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputIDs      = "input_ids"
	attentionMask = "attention_mask"
	tokenTypeIDs  = "token_type_ids"
	hiddenState   = "last_hidden_state"
)

// Config describes where the ONNX runtime, model and tokenizer live.
type Config struct {
	OrtDLL        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	Dimension     int
}

// Encoder runs a sentence-transformer exported to ONNX and mean-pools its
// last hidden state into an L2-normalized vector.
type Encoder struct {
	mu        sync.Mutex
	tk        *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	inputs    []string
	output    string
	maxSeqLen int
	dim       int
}

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(dll string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if dll != "" {
			ort.SetSharedLibraryPath(dll)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		return
	}
	envRefs--
	if envRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// Init loads the tokenizer and creates the inference session.
func (e *Encoder) Init(cfg Config) error {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return errors.New("model path is required")
	}
	if strings.TrimSpace(cfg.TokenizerPath) == "" {
		return errors.New("tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	if err := acquireEnvironment(cfg.OrtDLL); err != nil {
		return err
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		releaseEnvironment()
		return fmt.Errorf("inspect model: %w", err)
	}
	inputs := []string{inputIDs, attentionMask}
	for _, info := range inInfo {
		if info.Name == tokenTypeIDs {
			inputs = append(inputs, tokenTypeIDs)
		}
	}
	output := hiddenState
	dim := cfg.Dimension
	found := false
	for _, info := range outInfo {
		if info.Name != hiddenState {
			continue
		}
		found = true
		if n := len(info.Dimensions); n > 0 && info.Dimensions[n-1] > 0 {
			dim = int(info.Dimensions[n-1])
		}
	}
	if !found && len(outInfo) > 0 {
		output = outInfo[0].Name
		if n := len(outInfo[0].Dimensions); n > 0 && outInfo[0].Dimensions[n-1] > 0 {
			dim = int(outInfo[0].Dimensions[n-1])
		}
	}
	if dim <= 0 {
		releaseEnvironment()
		return errors.New("embedding dimension unknown: set embedder.dimension")
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{output}, nil)
	if err != nil {
		releaseEnvironment()
		return fmt.Errorf("create session: %w", err)
	}

	e.tk = tk
	e.session = session
	e.inputs = inputs
	e.output = output
	e.maxSeqLen = cfg.MaxSeqLen
	e.dim = dim
	return nil
}

// Dimension reports the width of produced vectors.
func (e *Encoder) Dimension() int {
	return e.dim
}

// Close releases the session and, for the last encoder, the runtime.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	releaseEnvironment()
	return err
}

// Encode embeds a single text.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch embeds texts in one session run, padding to the longest sequence.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("encoder is not initialized")
	}

	ids := make([][]int, len(texts))
	masks := make([][]int, len(texts))
	types := make([][]int, len(texts))
	seqLen := 1
	for i, text := range texts {
		enc, err := e.tk.EncodeSingle(text, true)
		if err != nil {
			return nil, fmt.Errorf("tokenize: %w", err)
		}
		ids[i] = truncateTokens(enc.GetIds(), e.maxSeqLen)
		masks[i] = truncateTokens(enc.GetAttentionMask(), e.maxSeqLen)
		types[i] = truncateTokens(enc.GetTypeIds(), e.maxSeqLen)
		if len(ids[i]) > seqLen {
			seqLen = len(ids[i])
		}
	}

	batch := len(texts)
	shape := ort.NewShape(int64(batch), int64(seqLen))
	idData := padTokens(ids, seqLen)
	maskData := padTokens(masks, seqLen)

	idTensor, err := ort.NewTensor(shape, idData)
	if err != nil {
		return nil, fmt.Errorf("input ids tensor: %w", err)
	}
	defer idTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, maskData)
	if err != nil {
		return nil, fmt.Errorf("attention mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	inputs := []ort.Value{idTensor, maskTensor}
	if len(e.inputs) == 3 {
		typeTensor, err := ort.NewTensor(shape, padTokens(types, seqLen))
		if err != nil {
			return nil, fmt.Errorf("token type tensor: %w", err)
		}
		defer typeTensor.Destroy()
		inputs = append(inputs, typeTensor)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), int64(seqLen), int64(e.dim)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()

	if err := e.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	hidden := out.GetData()
	vecs := make([][]float32, batch)
	for i := 0; i < batch; i++ {
		offset := i * seqLen * e.dim
		vecs[i] = MeanPool(hidden[offset:offset+seqLen*e.dim], maskData[i*seqLen:(i+1)*seqLen], e.dim)
		Normalize(vecs[i])
	}
	return vecs, nil
}

// truncateTokens keeps the final special token when the sequence is cut.
func truncateTokens(tokens []int, max int) []int {
	if len(tokens) <= max {
		return tokens
	}
	out := make([]int, max)
	copy(out, tokens[:max-1])
	out[max-1] = tokens[len(tokens)-1]
	return out
}

func padTokens(rows [][]int, seqLen int) []int64 {
	out := make([]int64, len(rows)*seqLen)
	for i, row := range rows {
		for j, v := range row {
			out[i*seqLen+j] = int64(v)
		}
	}
	return out
}
