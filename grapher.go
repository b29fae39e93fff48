package grapher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/grapher/internal/logging"
	"github.com/aretw0/grapher/pkg/adapters/file"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/aretw0/grapher/pkg/ports"
)

// Editor opens documents under the lock protocol on behalf of one identity.
type Editor struct {
	identity domain.Identity
	store    ports.DocumentStore
	locker   ports.DocumentLocker
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithStore injects a custom DocumentStore instead of the filesystem store.
func WithStore(s ports.DocumentStore) Option {
	return func(e *Editor) {
		e.store = s
	}
}

// WithLocker injects a custom DocumentLocker, e.g. the Redis locker.
func WithLocker(l ports.DocumentLocker) Option {
	return func(e *Editor) {
		e.locker = l
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on the default store and locker.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// New creates an Editor acting as identity. The default store and locker
// work on sidecar files next to each document.
func New(identity domain.Identity, opts ...Option) *Editor {
	e := &Editor{identity: identity}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With("user", identity.User, "station", identity.Station)

	fileOpts := []file.Option{file.WithLogger(e.logger), file.WithLifecycleHooks(e.hooks)}
	if e.store == nil {
		e.store = file.NewStore(fileOpts...)
	}
	if e.locker == nil {
		e.locker = file.NewLocker(identity, fileOpts...)
	}
	return e
}

// Identity returns the identity the editor acts as.
func (e *Editor) Identity() domain.Identity {
	return e.identity
}

// Open acquires the lock of path when it is free and loads the document.
// A document locked by someone else opens read-only. If loading fails, a
// lock taken by this call is released again.
func (e *Editor) Open(ctx context.Context, path string) (*Session, error) {
	state, holder, err := e.locker.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}

	doc, err := e.store.Load(ctx, path)
	if err != nil {
		if state == domain.LockedByMe {
			if rerr := e.locker.Release(ctx, path); rerr != nil {
				e.logger.Warn("failed to release lock after load error", "path", path, "error", rerr)
			}
		}
		return nil, err
	}

	e.logger.Info("document opened", "path", path, "state", state.String())
	return &Session{editor: e, Document: doc, path: path, state: state, holder: holder}, nil
}

// Create writes doc as a new document at path and returns a writable session.
// A nil doc starts empty. Creating over a document locked by someone else
// fails with ErrReadOnlyViolation.
func (e *Editor) Create(ctx context.Context, path string, doc *graph.Document) (*Session, error) {
	if doc == nil {
		doc = graph.NewDocument()
	}
	state, holder, err := e.locker.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	if state != domain.LockedByMe {
		return nil, readOnly(path, holder)
	}

	if err := e.store.Save(ctx, doc, path); err != nil {
		if rerr := e.locker.Release(ctx, path); rerr != nil {
			e.logger.Warn("failed to release lock after save error", "path", path, "error", rerr)
		}
		return nil, err
	}
	doc.SourcePath = path

	e.logger.Info("document created", "path", path)
	return &Session{editor: e, Document: doc, path: path, state: state, holder: holder}, nil
}

// Load reads a document without touching its lock.
func (e *Editor) Load(ctx context.Context, path string) (*graph.Document, error) {
	return e.store.Load(ctx, path)
}

// LockStatus reports who holds the lock of path without modifying it.
func (e *Editor) LockStatus(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	return e.locker.Inspect(ctx, path)
}

func readOnly(path string, holder domain.LockInfo) error {
	return fmt.Errorf("%w: %s is locked by %s@%s", domain.ErrReadOnlyViolation, path, holder.User, holder.Station)
}
