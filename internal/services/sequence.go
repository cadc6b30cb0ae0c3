package services

import (
	"fmt"

	"github.com/mashora/mashora-backend/internal/storage"
)

// SequenceGenerator produces human-readable reference numbers. It may fail;
// callers fall back to the gateway's own identifier.
type SequenceGenerator interface {
	Generate(code string) (string, error)
}

// StoreSequenceGenerator backs references with a store counter, producing
// values like "PAY-000123".
type StoreSequenceGenerator struct {
	store storage.Store
}

// NewStoreSequenceGenerator creates a store-backed sequence generator
func NewStoreSequenceGenerator(store storage.Store) *StoreSequenceGenerator {
	return &StoreSequenceGenerator{store: store}
}

func (g *StoreSequenceGenerator) Generate(code string) (string, error) {
	value, err := g.store.NextSequenceValue(code)
	if err != nil {
		return "", fmt.Errorf("failed to advance sequence %s: %w", code, err)
	}
	return fmt.Sprintf("%s-%06d", code, value), nil
}
