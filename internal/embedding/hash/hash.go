// Package hash implements a deterministic local embedder based on feature
// hashing. It needs no model server, which makes it useful for offline runs
// and as a stand-in embedding capability in tests.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Embedder maps text to a fixed-dimension bag-of-words vector by hashing
// tokens into buckets. Same text, same dimension, same vector.
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// New creates a hashing embedder with the given output dimension.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &Embedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

func (e *Embedder) Name() string { return fmt.Sprintf("hash-%d", e.dimension) }

func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns an L2-normalized token-count vector. A text with no tokens
// yields the zero vector rather than an error.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dimension)
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dimension))
		// The high bit of the hash decides the sign, which spreads collisions
		// instead of piling them up in one direction.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}
