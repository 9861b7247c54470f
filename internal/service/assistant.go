// Package service implements the retrieve-then-generate answer pipeline
// shared by every front end.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"faqrag/internal/domain"
)

// DefaultPromptTemplate fixes the assistant persona, the instruction to admit
// not knowing instead of fabricating, and the five-sentence cap. These are
// policy constraints on generation; the output is returned verbatim.
const DefaultPromptTemplate = `Anda adalah asisten BPJS Kesehatan. Gunakan konteks untuk menjawab pertanyaan.
Jika tidak tahu, katakan "Saya tidak tahu". Jawab dengan maksimal panjang 5 kalimat.

Pertanyaan: {question}
Konteks: {context}

Jawaban:`

// FailureMessage is the single user-facing text for a failed answer. Front
// ends show it as-is; the underlying cause stays in the logs.
const FailureMessage = "Maaf, terjadi kesalahan saat memproses pertanyaan Anda. Silakan coba lagi."

// DefaultTopK is the number of reference units retrieved per question.
const DefaultTopK = 2

// HistoryStore is the conversation log the assistant appends to.
type HistoryStore interface {
	Append(ctx context.Context, question, answer string) error
	ReadAll(ctx context.Context) []domain.HistoryEntry
}

// Assistant answers questions over the FAQ index. The index and embedder are
// fixed at construction and shared read-only, so concurrent Answer calls need
// no coordination beyond the history store's own append serialization.
type Assistant struct {
	embedder  domain.Embedder
	index     domain.Index
	generator domain.Generator
	history   HistoryStore
	topK      int
	template  string
}

// NewAssistant wires the pipeline. A non-positive topK and an empty template
// fall back to the defaults.
func NewAssistant(embedder domain.Embedder, index domain.Index, generator domain.Generator, history HistoryStore, topK int, template string) *Assistant {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if template == "" {
		template = DefaultPromptTemplate
	}
	return &Assistant{
		embedder:  embedder,
		index:     index,
		generator: generator,
		history:   history,
		topK:      topK,
		template:  template,
	}
}

// Answer retrieves the most similar reference units, renders the prompt and
// generates the answer. The entry is appended to history before the answer is
// returned; a failed question is not recorded.
func (a *Assistant) Answer(ctx context.Context, question string) (domain.Answer, error) {
	vec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: embedding question: %v", domain.ErrRetrieval, err)
	}
	results, err := a.index.Search(vec, a.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Unit.Text
	}
	prompt := renderPrompt(a.template, question, strings.Join(parts, "\n\n"))

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %v", domain.ErrGeneration, err)
		}
		return domain.Answer{}, err
	}

	if err := a.history.Append(ctx, question, text); err != nil {
		return domain.Answer{}, fmt.Errorf("recording answer: %w", err)
	}
	return domain.Answer{Text: text, Context: parts}, nil
}

// History returns the full conversation log in append order.
func (a *Assistant) History(ctx context.Context) []domain.HistoryEntry {
	return a.history.ReadAll(ctx)
}

func renderPrompt(template, question, context string) string {
	r := strings.NewReplacer("{question}", question, "{context}", context)
	return r.Replace(template)
}
