// Package mock provides a deterministic embedder for tests and for
// running the companion fully offline.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// defaultDimensions matches all-MiniLM-L6-v2 so mock vectors can share
// a store with real ones during local development.
const defaultDimensions = 384

// Embedder generates deterministic pseudo-embeddings from a text hash.
// It carries no semantic signal; identical inputs map to identical
// vectors, which is all the recall tests need.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with the default dimensionality.
func New() *Embedder {
	return &Embedder{dimensions: defaultDimensions}
}

// NewWithDimensions creates a mock embedder of the given size.
func NewWithDimensions(dims int) *Embedder {
	return &Embedder{dimensions: dims}
}

// Embed hashes the text and expands the hash into a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		// LCG expansion of the hash keeps the output deterministic.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
