package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// DefaultDimensions matches the output size of text-embedding-ada-002
const DefaultDimensions = 1536

// MockEmbedder produces deterministic unit vectors derived from the text hash.
// It stands in for the hosted service when no API key is configured.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder creates a mock embedder producing vectors of the given size
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// EmbedQuery returns the deterministic vector for text
func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return deterministicVector(text, m.dimensions), nil
}

// EmbedDocuments returns the deterministic vector of every text
func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, m.dimensions)
	}
	return vectors, nil
}

// deterministicVector seeds an LCG with the FNV hash of text and normalizes the result.
// Components fall in [-1, 1) before normalization.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	var sumSquares float64
	for i := range vector {
		seed = seed*1664525 + 1013904223
		v := float64(seed%2000)/1000.0 - 1.0
		vector[i] = float32(v)
		sumSquares += v * v
	}

	if sumSquares > 0 {
		norm := 1 / math.Sqrt(sumSquares)
		for i := range vector {
			vector[i] = float32(float64(vector[i]) * norm)
		}
	}

	return vector
}
