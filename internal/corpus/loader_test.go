package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"faqrag/internal/domain"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset_qa.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRendersUnitsInOrder(t *testing.T) {
	path := writeDataset(t, `[
		{"question": "What is BPJS?", "answer": "A national health insurance program."},
		{"question": "Who can join?", "answer": "Every resident."}
	]`)

	units, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	want := "Question: What is BPJS?\nAnswer: A national health insurance program."
	if units[0].Text != want {
		t.Errorf("unexpected rendering:\n got %q\nwant %q", units[0].Text, want)
	}
	if units[1].Text != "Question: Who can join?\nAnswer: Every resident." {
		t.Errorf("source ordering not preserved: %q", units[1].Text)
	}
	for i, u := range units {
		if u.Source != SourceTag {
			t.Errorf("unit %d missing source tag: %q", i, u.Source)
		}
	}
}

func TestLoadEmptyDataset(t *testing.T) {
	path := writeDataset(t, `[]`)
	units, err := Load(path)
	if err != nil {
		t.Fatalf("empty dataset should load: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected no units, got %d", len(units))
	}
}

func TestLoadMissingFieldFails(t *testing.T) {
	path := writeDataset(t, `[{"question": "What is BPJS?", "answer": ""}]`)
	if _, err := Load(path); !errors.Is(err, domain.ErrCorpusFormat) {
		t.Fatalf("expected ErrCorpusFormat, got %v", err)
	}
}

func TestLoadUnreadableSourceFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, domain.ErrCorpusFormat) {
		t.Fatalf("expected ErrCorpusFormat, got %v", err)
	}
}

func TestLoadMalformedJSONFails(t *testing.T) {
	path := writeDataset(t, `{"not": "an array"`)
	if _, err := Load(path); !errors.Is(err, domain.ErrCorpusFormat) {
		t.Fatalf("expected ErrCorpusFormat, got %v", err)
	}
}
