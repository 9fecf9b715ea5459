package skillmatch

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const fakeDim = 128

// fakeEmbedder maps known texts to fixed vectors. Unknown texts get their own
// one-hot axis starting at firstFree, so they are orthogonal to everything.
type fakeEmbedder struct {
	mu        sync.Mutex
	table     map[string][]float32
	assigned  map[string]int
	firstFree int
	next      int
	calls     int
	failing   bool
}

func newFakeEmbedder(table map[string][]float32) *fakeEmbedder {
	f := &fakeEmbedder{
		table:     make(map[string][]float32, len(table)),
		assigned:  make(map[string]int),
		firstFree: 32,
	}
	for k, v := range table {
		f.table[strings.ToLower(k)] = v
	}
	f.next = f.firstFree
	return f
}

// vec builds a fakeDim vector whose leading components are values.
func vec(values ...float32) []float32 {
	out := make([]float32, fakeDim)
	copy(out, values)
	return out
}

// axis returns the unit vector along dimension i.
func axis(i int) []float32 {
	out := make([]float32, fakeDim)
	out[i] = 1
	return out
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return nil, errors.New("oracle down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		key := strings.ToLower(strings.TrimSpace(t))
		if v, ok := f.table[key]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		idx, ok := f.assigned[key]
		if !ok {
			idx = f.next
			f.next++
			if f.next >= fakeDim {
				f.next = f.firstFree
			}
			f.assigned[key] = idx
		}
		out[i] = axis(idx)
	}
	return out, nil
}

func (f *fakeEmbedder) Close() error    { return nil }
func (f *fakeEmbedder) ModelID() string { return "fake-model" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// builtIndex returns a ready index over terms.
func builtIndex(ctx context.Context, f *fakeEmbedder, terms ...string) (*CorpusIndex, error) {
	idx := NewCorpusIndex("test", f, nil)
	if err := idx.Build(ctx, terms); err != nil {
		return nil, err
	}
	return idx, nil
}
