package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/gofrs/flock"
)

// guardSuffix names the flock file that serialises break and release on one host.
const guardSuffix = ".guard"

const guardRetry = 20 * time.Millisecond

// Locker implements ports.DocumentLocker with gpLock_ sidecar files.
// Exclusive creation (O_EXCL) decides the winner among concurrent writers.
type Locker struct {
	identity domain.Identity
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	now      func() time.Time
	newToken func() string

	mu     sync.Mutex
	tokens map[string]string // lock path -> token written by this instance
}

// NewLocker creates a file locker acting as identity.
func NewLocker(identity domain.Identity, opts ...Option) *Locker {
	o := buildOptions(opts)
	return &Locker{
		identity: identity,
		logger:   o.logger,
		hooks:    o.hooks,
		now:      o.now,
		newToken: o.token,
		tokens:   make(map[string]string),
	}
}

// Acquire implements ports.DocumentLocker.
func (l *Locker) Acquire(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	lockPath, err := codec.LockPath(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	state, info, err := l.acquire(lockPath)
	if err != nil {
		return state, info, err
	}
	l.emit(ctx, path, state, info)
	return state, info, nil
}

func (l *Locker) acquire(lockPath string) (domain.LockState, domain.LockInfo, error) {
	now := l.now()
	info := domain.LockInfo{
		User:    l.identity.User,
		Station: l.identity.Station,
		Date:    now.Format(domain.DateLayout),
		Time:    now.Format(domain.TimeLayout),
		Token:   l.newToken(),
	}
	data, err := codec.MarshalLock(info)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: %w", domain.ErrLockIO, err)
	}

	f, err := l.create(lockPath)
	if errors.Is(err, fs.ErrExist) {
		return l.inspect(lockPath)
	}
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: create %s: %w", domain.ErrLockIO, lockPath, err)
	}

	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(lockPath)
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: write %s: %w", domain.ErrLockIO, lockPath, werr)
	}

	l.mu.Lock()
	l.tokens[lockPath] = info.Token
	l.mu.Unlock()

	l.logger.Info("lock acquired", "path", lockPath, "user", info.User, "station", info.Station)
	return domain.LockedByMe, info, nil
}

// createAttempts bounds the retries when a sidecar vanishes between the
// exclusive create and the read of its holder.
const createAttempts = 3

// create opens lockPath exclusively. It returns fs.ErrExist only when a
// readable sidecar is in place.
func (l *Locker) create(lockPath string) (*os.File, error) {
	for range createAttempts {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if !errors.Is(err, fs.ErrExist) {
			return f, err
		}
		if _, statErr := os.Stat(lockPath); statErr == nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("sidecar vanished %d times in a row", createAttempts)
}

// Inspect implements ports.DocumentLocker.
func (l *Locker) Inspect(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	lockPath, err := codec.LockPath(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	return l.inspect(lockPath)
}

func (l *Locker) inspect(lockPath string) (domain.LockState, domain.LockInfo, error) {
	data, err := os.ReadFile(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Unlocked, domain.LockInfo{}, nil
	}
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: read %s: %w", domain.ErrLockIO, lockPath, err)
	}

	holder, err := codec.UnmarshalLock(data)
	if err != nil {
		// A sidecar we cannot parse still blocks writers.
		l.logger.Warn("unreadable lock file", "path", lockPath, "error", err)
		return domain.LockedByOther, domain.LockInfo{}, nil
	}
	if l.owns(lockPath, holder.Token) {
		return domain.LockedByMe, holder, nil
	}
	return domain.LockedByOther, holder, nil
}

func (l *Locker) owns(lockPath, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	mine, ok := l.tokens[lockPath]
	return ok && token != "" && mine == token
}

func (l *Locker) forget(lockPath string) {
	l.mu.Lock()
	delete(l.tokens, lockPath)
	l.mu.Unlock()
}

// Release implements ports.DocumentLocker. The sidecar is deleted only when
// this instance created it and the token on disk is still ours.
func (l *Locker) Release(ctx context.Context, path string) error {
	lockPath, err := codec.LockPath(path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	_, held := l.tokens[lockPath]
	l.mu.Unlock()
	if !held {
		l.logger.Debug("release skipped, lock not held", "path", lockPath)
		return nil
	}

	unlock, err := l.guard(ctx, lockPath)
	if err != nil {
		return err
	}
	defer unlock()

	state, holder, err := l.inspect(lockPath)
	if err != nil {
		return err
	}
	if state != domain.LockedByMe {
		l.logger.Warn("lock was taken over, leaving it in place", "path", lockPath, "user", holder.User)
		l.forget(lockPath)
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrLockIO, lockPath, err)
	}
	l.forget(lockPath)

	l.logger.Info("lock released", "path", lockPath)
	l.hooks.EmitLock(ctx, &domain.LockEvent{
		EventBase: domain.NewEventBase(domain.EventLockReleased),
		Path:      path,
		State:     domain.Unlocked,
		Holder:    holder,
	})
	return nil
}

// Adopt implements ports.LockAdopter.
func (l *Locker) Adopt(ctx context.Context, path, token string) (bool, error) {
	lockPath, err := codec.LockPath(path)
	if err != nil {
		return false, err
	}
	_, holder, err := l.inspect(lockPath)
	if err != nil {
		return false, err
	}
	if token == "" || holder.Token != token {
		return false, nil
	}
	l.mu.Lock()
	l.tokens[lockPath] = token
	l.mu.Unlock()
	return true, nil
}

// BreakLock implements ports.DocumentLocker.
func (l *Locker) BreakLock(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	lockPath, err := codec.LockPath(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}

	unlock, err := l.guard(ctx, lockPath)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	defer unlock()

	_, previous, err := l.inspect(lockPath)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: remove %s: %w", domain.ErrLockIO, lockPath, err)
	}
	l.forget(lockPath)
	l.logger.Warn("lock broken", "path", lockPath, "user", previous.User, "station", previous.Station)
	l.hooks.EmitLock(ctx, &domain.LockEvent{
		EventBase: domain.NewEventBase(domain.EventLockBroken),
		Path:      path,
		State:     domain.Unlocked,
		Holder:    previous,
	})

	state, info, err := l.acquire(lockPath)
	if err != nil {
		return state, info, err
	}
	l.emit(ctx, path, state, info)
	return state, info, nil
}

// guard takes the host-local flock next to the sidecar.
func (l *Locker) guard(ctx context.Context, lockPath string) (func(), error) {
	fl := flock.New(lockPath + guardSuffix)
	ok, err := fl.TryLockContext(ctx, guardRetry)
	if err != nil {
		return nil, fmt.Errorf("%w: guard %s: %w", domain.ErrLockIO, lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: guard %s: not acquired", domain.ErrLockIO, lockPath)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			l.logger.Warn("failed to release guard", "path", lockPath, "error", err)
		}
	}, nil
}

func (l *Locker) emit(ctx context.Context, path string, state domain.LockState, info domain.LockInfo) {
	t := domain.EventLockAcquired
	if state != domain.LockedByMe {
		t = domain.EventLockDenied
	}
	l.hooks.EmitLock(ctx, &domain.LockEvent{
		EventBase: domain.NewEventBase(t),
		Path:      path,
		State:     state,
		Holder:    info,
	})
}
