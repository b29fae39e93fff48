package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/google/uuid"
)

// Locks is a lock table shared by the lockers of one process. Each Locker
// made from it behaves like a separate user.
type Locks struct {
	mu   sync.Mutex
	held map[string]domain.LockInfo
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{held: make(map[string]domain.LockInfo)}
}

// Locker implements ports.DocumentLocker and ports.LockAdopter on a Locks table.
type Locker struct {
	table    *Locks
	identity domain.Identity
	now      func() time.Time

	mu     sync.Mutex
	tokens map[string]string
}

// Locker returns a locker acting as identity.
func (t *Locks) Locker(identity domain.Identity) *Locker {
	return &Locker{
		table:    t,
		identity: identity,
		now:      time.Now,
		tokens:   make(map[string]string),
	}
}

func (l *Locker) owns(key, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens[key] == token
}

func (l *Locker) remember(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token == "" {
		delete(l.tokens, key)
		return
	}
	l.tokens[key] = token
}

func (l *Locker) state(key string, info domain.LockInfo, ok bool) domain.LockState {
	switch {
	case !ok:
		return domain.Unlocked
	case l.owns(key, info.Token):
		return domain.LockedByMe
	default:
		return domain.LockedByOther
	}
}

// take records a fresh lock for key. The caller holds the table mutex.
func (l *Locker) take(key string) domain.LockInfo {
	now := l.now()
	info := domain.LockInfo{
		User:    l.identity.User,
		Station: l.identity.Station,
		Date:    now.Format(domain.DateLayout),
		Time:    now.Format(domain.TimeLayout),
		Token:   uuid.NewString(),
	}
	l.table.held[key] = info
	l.remember(key, info.Token)
	return info
}

// Acquire implements ports.DocumentLocker.
func (l *Locker) Acquire(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	key, err := codec.LockPath(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	if info, ok := l.table.held[key]; ok {
		return l.state(key, info, ok), info, nil
	}
	return domain.LockedByMe, l.take(key), nil
}

// Inspect implements ports.DocumentLocker.
func (l *Locker) Inspect(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	key, err := codec.LockPath(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	info, ok := l.table.held[key]
	return l.state(key, info, ok), info, nil
}

// Release implements ports.DocumentLocker.
func (l *Locker) Release(ctx context.Context, path string) error {
	key, err := codec.LockPath(path)
	if err != nil {
		return err
	}
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	l.mu.Lock()
	token, held := l.tokens[key]
	l.mu.Unlock()
	if !held {
		return nil
	}
	if info, ok := l.table.held[key]; ok && info.Token == token {
		delete(l.table.held, key)
	}
	l.remember(key, "")
	return nil
}

// Adopt implements ports.LockAdopter.
func (l *Locker) Adopt(ctx context.Context, path, token string) (bool, error) {
	key, err := codec.LockPath(path)
	if err != nil {
		return false, err
	}
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	info, ok := l.table.held[key]
	if !ok || token == "" || info.Token != token {
		return false, nil
	}
	l.remember(key, token)
	return true, nil
}

// BreakLock implements ports.DocumentLocker.
func (l *Locker) BreakLock(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	key, err := codec.LockPath(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	delete(l.table.held, key)
	return domain.LockedByMe, l.take(key), nil
}
