package domain

import "context"

// DimensionProbe is the fixed text embedded to learn the dimension of the
// currently configured embedding model. The resulting vector is discarded;
// only its length matters.
const DimensionProbe = "cek dimensi"

// QAPair is one reference question/answer record from the FAQ dataset.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Unit is the retrievable rendering of a QAPair. It is created once at index
// build time and never mutated.
type Unit struct {
	Text   string
	Source string
}

// SearchResult represents a matching unit with a similarity score.
type SearchResult struct {
	Unit  Unit
	Score float64
}

// Answer is the outcome of one retrieve-then-generate run.
type Answer struct {
	Text    string
	Context []string
}

// HistoryEntry is one persisted conversation turn.
type HistoryEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Embedder converts free text into a fixed-length numeric vector.
// The output dimension is a property of the model identity reported by Name.
type Embedder interface {
	Name() string
	// Dimension may return 0 for remote models until the first successful Embed.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces answer text from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Index supports top-k similarity search over unit vectors. Implementations
// are read-only after construction and safe for concurrent Search calls.
type Index interface {
	Dimension() int
	Len() int
	Search(vector []float64, topK int) ([]SearchResult, error)
}
