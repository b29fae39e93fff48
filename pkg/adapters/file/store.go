package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/grapher/internal/atomicfile"
	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
)

// Store implements ports.DocumentStore on the local filesystem.
type Store struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// NewStore creates a filesystem document store.
func NewStore(opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{logger: o.logger, hooks: o.hooks}
}

// Save writes doc to path atomically. The name is validated before any
// filesystem access.
func (s *Store) Save(ctx context.Context, doc *graph.Document, path string) (err error) {
	defer func() {
		s.hooks.EmitDocument(ctx, &domain.DocumentEvent{
			EventBase: domain.NewEventBase(domain.EventDocumentSave),
			Path:      path,
			Nodes:     doc.Tree.Len(),
			Err:       err,
		})
	}()

	if err := codec.ValidateDocumentName(path); err != nil {
		return err
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrDocumentWrite, path, err)
	}
	if err := atomicfile.Write(path, data, 0644); err != nil {
		s.logger.Error("document save failed", "path", path, "error", err)
		return fmt.Errorf("%w: %s: %w", domain.ErrDocumentWrite, path, err)
	}

	s.logger.Debug("document saved", "path", path, "nodes", doc.Tree.Len())
	return nil
}

// Load reads and decodes the document at path.
func (s *Store) Load(ctx context.Context, path string) (doc *graph.Document, err error) {
	defer func() {
		ev := &domain.DocumentEvent{
			EventBase: domain.NewEventBase(domain.EventDocumentLoad),
			Path:      path,
			Err:       err,
		}
		if doc != nil {
			ev.Nodes = doc.Tree.Len()
		}
		s.hooks.EmitDocument(ctx, ev)
	}()

	if err := codec.ValidateDocumentName(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentRead, path, err)
	}
	doc, err = codec.Unmarshal(data)
	if err != nil {
		s.logger.Warn("document is malformed", "path", path, "error", err)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.SourcePath = path

	s.logger.Debug("document loaded", "path", path, "nodes", doc.Tree.Len())
	return doc, nil
}
