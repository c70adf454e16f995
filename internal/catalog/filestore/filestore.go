// Package filestore loads the restaurant catalog from a JSON file on disk.
package filestore

import (
	"context"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/validator"
)

// Store reads and validates a catalog file each time Load is called.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Describe returns the file the store reads from.
func (s *Store) Describe() string {
	return s.path
}

func (s *Store) Load(ctx context.Context) (catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Catalog{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("reading catalog %s: %w", s.path, err)
	}
	records, err := catalog.Decode(data)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("parsing catalog %s: %w", s.path, err)
	}
	if err := validator.Records(records); err != nil {
		return catalog.Catalog{}, fmt.Errorf("validating catalog %s: %w", s.path, err)
	}
	return catalog.New(records), nil
}
