// Package index manages the semantic index lifecycle: load a persisted index
// when it is still valid for the configured embedding model, otherwise build
// it from the corpus and persist it.
package index

import (
	"context"
	"errors"
	"fmt"
	"log"

	"faqrag/internal/corpus"
	"faqrag/internal/domain"
	"faqrag/internal/vectorstore/flat"
)

// Manager resolves a ready-to-serve index at startup. It is meant to be
// called once per process; concurrent calls from multiple processes against
// the same path are not coordinated.
type Manager struct {
	path       string
	corpusPath string
	embedder   domain.Embedder
}

// NewManager creates a manager for the index directory at path, built from
// the dataset at corpusPath with the given embedder.
func NewManager(path, corpusPath string, embedder domain.Embedder) *Manager {
	return &Manager{path: path, corpusPath: corpusPath, embedder: embedder}
}

// GetOrBuild returns a usable index. A missing persisted index is built from
// the corpus and saved. A loadable index is validated by embedding a fixed
// probe text and comparing dimensions: an index built with a different
// embedding model is geometrically meaningless, so a mismatch forces one
// rebuild with the current embedder. A mismatch that survives the rebuild is
// fatal.
func (m *Manager) GetOrBuild(ctx context.Context) (*flat.Index, error) {
	if !flat.Exists(m.path) {
		log.Printf("no index at %s, building from %s", m.path, m.corpusPath)
		return m.buildAndSave(ctx)
	}

	ix, err := flat.Load(m.path)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) || errors.Is(err, domain.ErrIndexCorrupt) {
			log.Printf("index at %s unusable (%v), rebuilding", m.path, err)
			return m.buildAndSave(ctx)
		}
		return nil, err
	}

	probe, err := m.embedder.Embed(ctx, domain.DimensionProbe)
	if err != nil {
		return nil, fmt.Errorf("probing embedding dimension: %w", err)
	}
	if ix.Dimension() == len(probe) {
		return ix, nil
	}

	log.Printf("index dimension %d does not match embedder %s dimension %d, rebuilding",
		ix.Dimension(), m.embedder.Name(), len(probe))
	rebuilt, err := m.buildAndSave(ctx)
	if err != nil {
		return nil, err
	}
	if rebuilt.Dimension() != len(probe) {
		return nil, fmt.Errorf("%w: rebuilt dimension %d, embedder dimension %d",
			domain.ErrIndexInconsistent, rebuilt.Dimension(), len(probe))
	}
	return rebuilt, nil
}

func (m *Manager) buildAndSave(ctx context.Context) (*flat.Index, error) {
	units, err := corpus.Load(m.corpusPath)
	if err != nil {
		return nil, err
	}
	ix, err := flat.Build(ctx, units, m.embedder)
	if err != nil {
		return nil, err
	}
	if err := ix.Save(m.path); err != nil {
		return nil, fmt.Errorf("persisting index: %w", err)
	}
	log.Printf("index saved to %s (%d units, dimension %d)", m.path, ix.Len(), ix.Dimension())
	return ix, nil
}
