// Package corpus loads the reference question/answer dataset and renders it
// into retrievable units.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"faqrag/internal/domain"
)

// SourceTag marks every unit with the provenance of the FAQ dataset.
const SourceTag = "bpjs_qa_dataset"

// Load reads a JSON array of {question, answer} records from path. Each record
// becomes exactly one unit; source ordering is preserved and later used as the
// stable tiebreak for equal similarity scores.
func Load(path string) ([]domain.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrCorpusFormat, path, err)
	}
	var pairs []domain.QAPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrCorpusFormat, path, err)
	}
	units := make([]domain.Unit, 0, len(pairs))
	for i, p := range pairs {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return nil, fmt.Errorf("%w: record %d is missing a question or an answer", domain.ErrCorpusFormat, i)
		}
		units = append(units, domain.Unit{Text: Render(p), Source: SourceTag})
	}
	return units, nil
}

// Render produces the canonical retrievable text for a QA pair.
func Render(p domain.QAPair) string {
	return "Question: " + p.Question + "\nAnswer: " + p.Answer
}
