// Package memory provides in-process implementations of the document ports
// for tests and embedders that do not touch a shared filesystem.
package memory

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
)

// Store implements ports.DocumentStore in memory.
// Documents are kept encoded, so a loaded document never aliases a saved one.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save implements ports.DocumentStore.
func (s *Store) Save(ctx context.Context, doc *graph.Document, path string) error {
	if err := codec.ValidateDocumentName(path); err != nil {
		return err
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrDocumentWrite, path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = data
	return nil
}

// Load implements ports.DocumentStore.
func (s *Store) Load(ctx context.Context, path string) (*graph.Document, error) {
	if err := codec.ValidateDocumentName(path); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.data[path]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentRead, path, fs.ErrNotExist)
	}

	doc, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.SourcePath = path
	return doc, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
