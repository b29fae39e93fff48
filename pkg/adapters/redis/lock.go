package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/grapher/internal/logging"
	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces lock keys.
const DefaultPrefix = "grapher:lock:"

// releaseScript deletes the key only if it still holds our value.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements ports.DocumentLocker using Redis SET NX.
// It follows the same state machine as the sidecar file locker.
type Locker struct {
	client   *backend.Client
	identity domain.Identity
	prefix   string
	ttl      time.Duration
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	now      func() time.Time

	mu     sync.Mutex
	values map[string]string // key -> exact value we stored
}

// Option configures the Locker.
type Option func(*Locker)

// WithPrefix sets the key prefix for locks.
func WithPrefix(prefix string) Option {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// WithTTL makes locks expire after ttl. Zero keeps them until released or broken.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		l.ttl = ttl
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) {
		l.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(l *Locker) {
		l.hooks = hooks
	}
}

// WithClock overrides the time source used to stamp lock records.
func WithClock(now func() time.Time) Option {
	return func(l *Locker) {
		l.now = now
	}
}

// New creates a Redis locker with its own client.
func New(address, password string, db int, identity domain.Identity, opts ...Option) *Locker {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, identity, opts...)
}

// NewFromClient creates a Redis locker from an existing client.
func NewFromClient(client *backend.Client, identity domain.Identity, opts ...Option) *Locker {
	l := &Locker{
		client:   client,
		identity: identity,
		prefix:   DefaultPrefix,
		logger:   logging.NewNop(),
		now:      time.Now,
		values:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// key maps a document path to its lock key. The gpLock_ path keeps keys
// readable and validates the document name.
func (l *Locker) key(path string) (string, error) {
	lockPath, err := codec.LockPath(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(lockPath)
	if err != nil {
		abs = lockPath
	}
	return l.prefix + filepath.ToSlash(abs), nil
}

// Acquire implements ports.DocumentLocker.
func (l *Locker) Acquire(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	key, err := l.key(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	state, info, err := l.acquire(ctx, key)
	if err != nil {
		return state, info, err
	}
	l.emit(ctx, path, state, info)
	return state, info, nil
}

func (l *Locker) acquire(ctx context.Context, key string) (domain.LockState, domain.LockInfo, error) {
	now := l.now()
	info := domain.LockInfo{
		User:    l.identity.User,
		Station: l.identity.Station,
		Date:    now.Format(domain.DateLayout),
		Time:    now.Format(domain.TimeLayout),
		Token:   uuid.NewString(),
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: %w", domain.ErrLockIO, err)
	}

	ok, err := l.client.SetNX(ctx, key, string(raw), l.ttl).Result()
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: setnx %s: %w", domain.ErrLockIO, key, err)
	}
	if !ok {
		return l.inspect(ctx, key)
	}

	l.mu.Lock()
	l.values[key] = string(raw)
	l.mu.Unlock()
	l.logger.Info("lock acquired", "path", key, "user", info.User, "station", info.Station)
	return domain.LockedByMe, info, nil
}

// Inspect implements ports.DocumentLocker.
func (l *Locker) Inspect(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	key, err := l.key(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	return l.inspect(ctx, key)
}

func (l *Locker) inspect(ctx context.Context, key string) (domain.LockState, domain.LockInfo, error) {
	raw, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, backend.Nil) {
		return domain.Unlocked, domain.LockInfo{}, nil
	}
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: get %s: %w", domain.ErrLockIO, key, err)
	}

	var holder domain.LockInfo
	if err := json.Unmarshal([]byte(raw), &holder); err != nil {
		l.logger.Warn("unreadable lock value", "path", key, "error", err)
		return domain.LockedByOther, domain.LockInfo{}, nil
	}

	l.mu.Lock()
	mine, held := l.values[key]
	l.mu.Unlock()
	if held && mine == raw {
		return domain.LockedByMe, holder, nil
	}
	return domain.LockedByOther, holder, nil
}

// Release implements ports.DocumentLocker. The compare-and-delete runs
// server-side, so a lock taken over by someone else survives.
func (l *Locker) Release(ctx context.Context, path string) error {
	key, err := l.key(path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	value, held := l.values[key]
	l.mu.Unlock()
	if !held {
		return nil
	}

	n, err := releaseScript.Run(ctx, l.client, []string{key}, value).Int()
	if err != nil {
		return fmt.Errorf("%w: release %s: %w", domain.ErrLockIO, key, err)
	}
	l.mu.Lock()
	if l.values[key] == value {
		delete(l.values, key)
	}
	l.mu.Unlock()
	if n == 0 {
		l.logger.Warn("lock was taken over, leaving it in place", "path", key)
		return nil
	}

	l.logger.Info("lock released", "path", key)
	l.hooks.EmitLock(ctx, &domain.LockEvent{
		EventBase: domain.NewEventBase(domain.EventLockReleased),
		Path:      path,
		State:     domain.Unlocked,
	})
	return nil
}

// Adopt implements ports.LockAdopter.
func (l *Locker) Adopt(ctx context.Context, path, token string) (bool, error) {
	key, err := l.key(path)
	if err != nil {
		return false, err
	}
	raw, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, backend.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", domain.ErrLockIO, key, err)
	}
	var holder domain.LockInfo
	if err := json.Unmarshal([]byte(raw), &holder); err != nil || token == "" || holder.Token != token {
		return false, nil
	}
	l.mu.Lock()
	l.values[key] = raw
	l.mu.Unlock()
	return true, nil
}

// BreakLock implements ports.DocumentLocker.
func (l *Locker) BreakLock(ctx context.Context, path string) (domain.LockState, domain.LockInfo, error) {
	key, err := l.key(path)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	_, previous, err := l.inspect(ctx, key)
	if err != nil {
		return domain.Unlocked, domain.LockInfo{}, err
	}
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return domain.Unlocked, domain.LockInfo{}, fmt.Errorf("%w: del %s: %w", domain.ErrLockIO, key, err)
	}
	l.mu.Lock()
	delete(l.values, key)
	l.mu.Unlock()

	l.logger.Warn("lock broken", "path", key, "user", previous.User, "station", previous.Station)
	l.hooks.EmitLock(ctx, &domain.LockEvent{
		EventBase: domain.NewEventBase(domain.EventLockBroken),
		Path:      path,
		State:     domain.Unlocked,
		Holder:    previous,
	})

	state, info, err := l.acquire(ctx, key)
	if err != nil {
		return state, info, err
	}
	l.emit(ctx, path, state, info)
	return state, info, nil
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
