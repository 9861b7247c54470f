package flat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"faqrag/internal/domain"
	"faqrag/internal/embedding/hash"
)

type fakeEmbedder struct {
	name    string
	dim     int
	vectors map[string][]float64
}

func (f *fakeEmbedder) Name() string   { return f.name }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, nil
}

func faqUnits(n int) []domain.Unit {
	units := make([]domain.Unit, n)
	for i := range units {
		units[i] = domain.Unit{
			Text:   fmt.Sprintf("Question: q%d\nAnswer: a%d", i, i),
			Source: "bpjs_qa_dataset",
		}
	}
	return units
}

func TestSearchOrderingAndClamping(t *testing.T) {
	ctx := context.Background()
	embedder := hash.New(64)
	units := []domain.Unit{
		{Text: "Question: What is BPJS?\nAnswer: A national health insurance program.", Source: "bpjs_qa_dataset"},
		{Text: "Question: How do I register?\nAnswer: Through the mobile app.", Source: "bpjs_qa_dataset"},
		{Text: "Question: What does the premium cost?\nAnswer: It depends on the class.", Source: "bpjs_qa_dataset"},
	}
	ix, err := Build(ctx, units, embedder)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	query, _ := embedder.Embed(ctx, "What is BPJS Kesehatan?")
	results, err := ix.Search(query, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("scores not non-increasing: %v then %v", results[i-1].Score, results[i].Score)
		}
	}

	// topK beyond the corpus size returns every unit.
	all, err := ix.Search(query, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != len(units) {
		t.Fatalf("expected %d results, got %d", len(units), len(all))
	}
}

func TestSearchTiesKeepCorpusOrder(t *testing.T) {
	units := faqUnits(3)
	embedder := &fakeEmbedder{
		name: "fake",
		dim:  2,
		vectors: map[string][]float64{
			units[0].Text: {0, 1},
			units[1].Text: {1, 0},
			units[2].Text: {1, 0},
		},
	}
	ix, err := Build(context.Background(), units, embedder)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	results, err := ix.Search([]float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if results[0].Unit.Text != units[1].Text || results[1].Unit.Text != units[2].Text {
		t.Fatalf("tie not broken by corpus order: %q before %q", results[0].Unit.Text, results[1].Unit.Text)
	}
	if results[2].Unit.Text != units[0].Text {
		t.Fatalf("lowest score should come last, got %q", results[2].Unit.Text)
	}
}

func TestSearchInvalidTopK(t *testing.T) {
	ix, err := Build(context.Background(), faqUnits(1), hash.New(16))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Search(make([]float64, 16), 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ix.Search(make([]float64, 16), -3); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEmptyCorpusIndex(t *testing.T) {
	ix, err := Build(context.Background(), nil, hash.New(32))
	if err != nil {
		t.Fatalf("empty build should succeed: %v", err)
	}
	if ix.Dimension() != 32 {
		t.Fatalf("dimension not recorded for empty index: %d", ix.Dimension())
	}
	results, err := ix.Search(make([]float64, 32), 5)
	if err != nil {
		t.Fatalf("search on empty index should succeed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	embedder := hash.New(64)
	units := faqUnits(4)
	built, err := Build(ctx, units, embedder)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "faq_index")
	if err := built.Save(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("Exists should report the saved index")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Dimension() != built.Dimension() || loaded.Len() != built.Len() {
		t.Fatalf("loaded index shape differs: dim %d/%d len %d/%d",
			loaded.Dimension(), built.Dimension(), loaded.Len(), built.Len())
	}
	if loaded.EmbedderName() != embedder.Name() {
		t.Fatalf("embedder identity lost: %q", loaded.EmbedderName())
	}

	query, _ := embedder.Embed(ctx, "q2")
	want, err := built.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(want) != len(got) {
		t.Fatalf("result counts differ: %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i].Unit != got[i].Unit || want[i].Score != got[i].Score {
			t.Fatalf("result %d differs after round trip: %+v vs %+v", i, want[i], got[i])
		}
	}
}

func TestLoadMissingIndex(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoadCorruptVectors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "faq_index")
	ix, err := Build(context.Background(), faqUnits(2), hash.New(16))
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vectors.bin"), []byte("not a vector file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestLoadMissingMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "faq_index")
	ix, err := Build(context.Background(), faqUnits(2), hash.New(16))
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "meta.db")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}
