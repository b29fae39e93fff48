package ports

import (
	"context"

	"github.com/aretw0/grapher/pkg/graph"
)

// DocumentStore persists graph documents.
type DocumentStore interface {
	// Save writes doc to path. Implementations must never leave a truncated file behind.
	Save(ctx context.Context, doc *graph.Document, path string) error

	// Load reads the document at path. It returns either a complete document or an error.
	Load(ctx context.Context, path string) (*graph.Document, error)
}
