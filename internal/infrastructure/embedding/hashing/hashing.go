// Package hashing implements a deterministic bag-of-words embedder based on
// feature hashing. It needs no model files or network access and serves
// offline deployments and tests; its vectors capture lexical overlap only.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder hashes lowercase word tokens into a fixed number of buckets and
// L2-normalizes the counts.
type Embedder struct {
	dim int
}

// New returns an Embedder producing vectors of length dim.
func New(dim int) (*Embedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing: dimension must be positive, got %d", dim)
	}
	return &Embedder{dim: dim}, nil
}

// ModelID identifies the hashing scheme and dimension.
func (e *Embedder) ModelID() string {
	return fmt.Sprintf("hashing-fnv1a-%d", e.dim)
}

// Dimension returns the vector length.
func (e *Embedder) Dimension() int { return e.dim }

// EmbedTexts embeds each text independently.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum64()%uint64(e.dim)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
	return vec
}
