package ports

import (
	"context"

	"github.com/aretw0/grapher/pkg/domain"
)

// DocumentLocker coordinates single-writer access to a document path across
// users and processes. The protocol is cooperative: readers are never blocked.
type DocumentLocker interface {
	// Acquire takes the lock for path if it is free and returns LockedByMe.
	// If another holder owns it, it returns LockedByOther with the holder's info
	// and leaves the lock untouched.
	Acquire(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error)

	// Release drops the lock only if this locker acquired it and still owns it.
	// Otherwise it does nothing.
	Release(ctx context.Context, path string) error

	// BreakLock deletes any existing lock and acquires it. The caller is
	// responsible for confirming intent.
	BreakLock(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error)

	// Inspect reports the lock state of path without modifying it.
	Inspect(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error)
}

// LockAdopter is implemented by lockers that can resume ownership of a lock
// created by an earlier process, given the token it recorded.
type LockAdopter interface {
	// Adopt reports whether the lock of path carries token. On success,
	// later Release calls on this locker delete it.
	Adopt(ctx context.Context, path, token string) (bool, error)
}

// AdoptingLocker is a DocumentLocker that also supports Adopt.
type AdoptingLocker interface {
	DocumentLocker
	LockAdopter
}
