package file_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/grapher/pkg/adapters/file"
	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Contract(t *testing.T) {
	dir := t.TempDir()
	ports.RunDocumentLockerContract(t,
		func(id domain.Identity) ports.DocumentLocker { return file.NewLocker(id) },
		func(name string) string { return filepath.Join(dir, codec.DocumentName(name)) },
	)
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
}

func TestLocker_SidecarContent(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "gp_Shot010.py")
	l := file.NewLocker(domain.Identity{User: "alice", Station: "ws-01"},
		file.WithClock(fixedClock),
		file.WithTokenSource(func() string { return "tok-1" }),
	)

	state, info, err := l.Acquire(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)
	assert.Equal(t, domain.LockInfo{User: "alice", Station: "ws-01", Date: "2024-03-01", Time: "10:15:00", Token: "tok-1"}, info)

	data, err := os.ReadFile(filepath.Join(dir, "gpLock_Shot010.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `lock = {"user":"alice","station":"ws-01","date":"2024-03-01","time":"10:15:00","token":"tok-1"}`)
}

func TestLocker_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "gp_Shot010.py")
	lockPath := filepath.Join(dir, "gpLock_Shot010.py")
	original := "lock = {\"user\":\"carol\",\"station\":\"ws-09\",\"date\":\"2024-01-01\",\"time\":\"08:00:00\",\"token\":\"x\"}\n"
	require.NoError(t, os.WriteFile(lockPath, []byte(original), 0644))

	l := file.NewLocker(domain.Identity{User: "alice", Station: "ws-01"})
	state, info, err := l.Acquire(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, state)
	assert.Equal(t, "carol", info.User)
	assert.Equal(t, "ws-09", info.Station)

	data, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestLocker_UnreadableSidecarBlocks(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "gp_Shot010.py")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gpLock_Shot010.py"), []byte("garbage"), 0644))

	l := file.NewLocker(domain.Identity{User: "alice", Station: "ws-01"})
	state, info, err := l.Acquire(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, state)
	assert.Empty(t, info.User)

	state, _, err = l.BreakLock(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)
}

func TestLocker_InvalidName(t *testing.T) {
	l := file.NewLocker(domain.Identity{User: "alice"})
	_, _, err := l.Acquire(context.Background(), filepath.Join(t.TempDir(), "scene.py"))
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentName)
	assert.ErrorIs(t, l.Release(context.Background(), "scene.py"), domain.ErrInvalidDocumentName)
}

func TestLocker_IOFailure(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	l := file.NewLocker(domain.Identity{User: "alice"})
	state, _, err := l.Acquire(context.Background(), filepath.Join(dir, "gp_Shot010.py"))
	assert.ErrorIs(t, err, domain.ErrLockIO)
	assert.NotEqual(t, domain.LockedByMe, state)
}

func TestLocker_VanishingSidecar(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	dir := t.TempDir()
	// A dangling link exists for O_EXCL but not for Stat.
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "gpLock_Shot010.py")))

	l := file.NewLocker(domain.Identity{User: "alice"})
	state, _, err := l.Acquire(context.Background(), filepath.Join(dir, "gp_Shot010.py"))
	assert.ErrorIs(t, err, domain.ErrLockIO)
	assert.Equal(t, domain.Unlocked, state)
}

func TestLocker_Hooks(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "gp_Shot010.py")
	var events []domain.EventType
	hooks := domain.LifecycleHooks{
		OnLock: func(_ context.Context, e *domain.LockEvent) { events = append(events, e.Type) },
	}
	alice := file.NewLocker(domain.Identity{User: "alice"}, file.WithLifecycleHooks(hooks))
	bob := file.NewLocker(domain.Identity{User: "bob"}, file.WithLifecycleHooks(hooks))
	ctx := context.Background()

	_, _, err := alice.Acquire(ctx, doc)
	require.NoError(t, err)
	_, _, err = bob.Acquire(ctx, doc)
	require.NoError(t, err)
	_, _, err = bob.BreakLock(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, bob.Release(ctx, doc))

	assert.Equal(t, []domain.EventType{
		domain.EventLockAcquired,
		domain.EventLockDenied,
		domain.EventLockBroken,
		domain.EventLockAcquired,
		domain.EventLockReleased,
	}, events)
}

func TestLocker_ConcurrentAcquire(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "gp_Shot010.py")
	const n = 8

	results := make(chan domain.LockState, n)
	for i := range n {
		go func() {
			l := file.NewLocker(domain.Identity{User: strings.Repeat("u", i+1)})
			state, _, err := l.Acquire(context.Background(), doc)
			if err != nil {
				state = domain.Unlocked
			}
			results <- state
		}()
	}

	winners := 0
	for range n {
		if <-results == domain.LockedByMe {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestLocker_Adopt(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "gp_Shot010.py")
	ports.RunLockAdopterContract(t,
		func(id domain.Identity) ports.AdoptingLocker { return file.NewLocker(id) },
		doc,
	)
}
