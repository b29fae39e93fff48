package grapher

import (
	"context"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
)

// Session is one open document. Writable sessions hold the document lock
// until Close.
type Session struct {
	editor *Editor
	// Document is the in-memory model. Mutate it freely; Save persists it.
	Document *graph.Document

	path   string
	state  domain.LockState
	holder domain.LockInfo
	closed bool
}

// Path returns the document path the session saves to.
func (s *Session) Path() string { return s.path }

// State returns the lock state observed when the session last acquired or broke the lock.
func (s *Session) State() domain.LockState { return s.state }

// Holder returns the lock holder. For writable sessions it is the caller.
func (s *Session) Holder() domain.LockInfo { return s.holder }

// ReadOnly reports whether Save is refused.
func (s *Session) ReadOnly() bool { return !s.state.Writable() }

// Save writes the document to its path. The lock is checked again first, so a
// session whose lock was broken fails with ErrReadOnlyViolation before
// anything is written.
func (s *Session) Save(ctx context.Context) error {
	if !s.state.Writable() {
		return readOnly(s.path, s.holder)
	}
	if err := s.refresh(ctx); err != nil {
		return err
	}
	if !s.state.Writable() {
		return readOnly(s.path, s.holder)
	}
	return s.editor.store.Save(ctx, s.Document, s.path)
}

// refresh replaces the cached lock state with the one on record.
func (s *Session) refresh(ctx context.Context) error {
	state, holder, err := s.editor.locker.Inspect(ctx, s.path)
	if err != nil {
		return err
	}
	if state != domain.LockedByMe {
		s.editor.logger.Warn("lock lost", "path", s.path, "user", holder.User, "station", holder.Station)
	}
	s.state, s.holder = state, holder
	return nil
}

// SaveAs writes the document to a new path. The lock of the new path is
// acquired first; on success the old lock is released and the session moves.
func (s *Session) SaveAs(ctx context.Context, path string) error {
	if path == s.path {
		return s.Save(ctx)
	}
	e := s.editor
	state, holder, err := e.locker.Acquire(ctx, path)
	if err != nil {
		return err
	}
	if state != domain.LockedByMe {
		return readOnly(path, holder)
	}
	if err := e.store.Save(ctx, s.Document, path); err != nil {
		if rerr := e.locker.Release(ctx, path); rerr != nil {
			e.logger.Warn("failed to release lock after save error", "path", path, "error", rerr)
		}
		return err
	}

	if s.state == domain.LockedByMe {
		if err := s.refresh(ctx); err != nil {
			e.logger.Warn("failed to inspect previous lock", "path", s.path, "error", err)
		}
	}
	if s.state == domain.LockedByMe {
		if err := e.locker.Release(ctx, s.path); err != nil {
			e.logger.Warn("failed to release previous lock", "path", s.path, "error", err)
		}
	}
	e.logger.Info("document saved as", "path", path, "previous", s.path)
	s.path, s.state, s.holder, s.closed = path, state, holder, false
	s.Document.SourcePath = path
	return nil
}

// BreakLock forcibly takes the lock from its holder, making the session writable.
// The caller is responsible for confirming intent with the user.
func (s *Session) BreakLock(ctx context.Context) error {
	state, holder, err := s.editor.locker.BreakLock(ctx, s.path)
	if err != nil {
		return err
	}
	s.state, s.holder, s.closed = state, holder, false
	if state != domain.LockedByMe {
		return readOnly(s.path, holder)
	}
	return nil
}

// Upgrade tries to acquire the lock of a read-only session. When it succeeds,
// the document is reloaded so edits start from the latest saved version.
func (s *Session) Upgrade(ctx context.Context) (bool, error) {
	if s.state.Writable() {
		return true, nil
	}
	e := s.editor
	state, holder, err := e.locker.Acquire(ctx, s.path)
	if err != nil {
		return false, err
	}
	s.holder = holder
	if state != domain.LockedByMe {
		s.state = state
		return false, nil
	}

	doc, err := e.store.Load(ctx, s.path)
	if err != nil {
		if rerr := e.locker.Release(ctx, s.path); rerr != nil {
			e.logger.Warn("failed to release lock after load error", "path", s.path, "error", rerr)
		}
		return false, err
	}
	s.Document, s.state = doc, state
	return true, nil
}

// Reload replaces the in-memory document with the saved one.
func (s *Session) Reload(ctx context.Context) error {
	doc, err := s.editor.store.Load(ctx, s.path)
	if err != nil {
		return err
	}
	s.Document = doc
	return nil
}

// Close releases the lock if this session holds it. Read-only sessions never
// delete anything. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.state != domain.LockedByMe {
		return nil
	}
	s.state = domain.Unlocked
	return s.editor.locker.Release(ctx, s.path)
}
