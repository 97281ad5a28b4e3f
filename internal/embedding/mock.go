package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// Mock is a deterministic embedder for tests and offline runs. It hashes
// lowercased words into a fixed number of buckets, so texts sharing words get
// correlated vectors while unrelated texts stay near orthogonal.
type Mock struct {
	dim int
}

func NewMock(dim int) *Mock {
	if dim <= 0 {
		dim = 64
	}
	return &Mock{dim: dim}
}

func (m *Mock) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = m.embed(t)
	}
	return vectors, nil
}

func (m *Mock) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return m.embed(text), nil
}

func (m *Mock) embed(text string) []float32 {
	v := make([]float32, m.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		v[int(h.Sum32())%m.dim]++
	}
	return v
}
