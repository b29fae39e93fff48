package ports

import (
	"context"
	"testing"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LockerFactory builds an independent locker acting as the given identity,
// simulating a separate process.
type LockerFactory func(id domain.Identity) DocumentLocker

// RunDocumentLockerContract runs a suite of tests to verify that a DocumentLocker
// implementation adheres to the lock protocol. pathFor returns a fresh document
// path for each sub-test.
func RunDocumentLockerContract(t *testing.T, newLocker LockerFactory, pathFor func(name string) string) {
	ctx := context.Background()
	alice := domain.Identity{User: "alice", Station: "ws-01"}
	bob := domain.Identity{User: "bob", Station: "ws-02"}
	carol := domain.Identity{User: "carol", Station: "ws-03"}

	t.Run("Mutual Exclusion", func(t *testing.T) {
		path := pathFor("exclusion")
		a, b := newLocker(alice), newLocker(bob)

		state, info, err := a.Acquire(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByMe, state)
		assert.Equal(t, "alice", info.User)

		state, info, err = b.Acquire(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByOther, state)
		assert.Equal(t, "alice", info.User, "holder metadata must be exposed")
		assert.Equal(t, "ws-01", info.Station)
		assert.NotEmpty(t, info.Date)
		assert.NotEmpty(t, info.Time)
	})

	t.Run("Reacquire By Holder", func(t *testing.T) {
		path := pathFor("reacquire")
		a := newLocker(alice)

		_, first, err := a.Acquire(ctx, path)
		require.NoError(t, err)
		state, again, err := a.Acquire(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByMe, state)
		assert.Equal(t, first, again)
	})

	t.Run("Release Asymmetry", func(t *testing.T) {
		path := pathFor("asymmetry")
		a, b, observer := newLocker(alice), newLocker(bob), newLocker(carol)

		_, _, err := a.Acquire(ctx, path)
		require.NoError(t, err)
		state, _, err := b.Acquire(ctx, path)
		require.NoError(t, err)
		require.Equal(t, domain.LockedByOther, state)

		require.NoError(t, b.Release(ctx, path))
		state, info, err := observer.Inspect(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByOther, state, "read-only release must not delete the lock")
		assert.Equal(t, "alice", info.User)

		require.NoError(t, a.Release(ctx, path))
		state, _, err = observer.Inspect(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.Unlocked, state)
	})

	t.Run("Break Lock", func(t *testing.T) {
		path := pathFor("break")
		a, b, observer := newLocker(alice), newLocker(bob), newLocker(carol)

		_, _, err := a.Acquire(ctx, path)
		require.NoError(t, err)

		state, info, err := b.BreakLock(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByMe, state)
		assert.Equal(t, "bob", info.User)

		// The previous holder lost ownership: its release must not free bob's lock.
		require.NoError(t, a.Release(ctx, path))
		state, info, err = observer.Inspect(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByOther, state)
		assert.Equal(t, "bob", info.User)

		require.NoError(t, b.Release(ctx, path))
		state, _, err = observer.Inspect(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.Unlocked, state)
	})

	t.Run("Break Free Lock", func(t *testing.T) {
		path := pathFor("break-free")
		state, _, err := newLocker(bob).BreakLock(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByMe, state)
	})

	t.Run("Release Without Lock", func(t *testing.T) {
		path := pathFor("never")
		assert.NoError(t, newLocker(alice).Release(ctx, path))
		assert.NoError(t, newLocker(alice).Release(ctx, path))
	})

	t.Run("Acquire After Release", func(t *testing.T) {
		path := pathFor("cycle")
		a, b := newLocker(alice), newLocker(bob)

		_, _, err := a.Acquire(ctx, path)
		require.NoError(t, err)
		require.NoError(t, a.Release(ctx, path))

		state, info, err := b.Acquire(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.LockedByMe, state)
		assert.Equal(t, "bob", info.User)
	})
}

// RunLockAdopterContract verifies that a second locker instance can take over
// a lock from its token, and only from its token.
func RunLockAdopterContract(t *testing.T, newLocker func(id domain.Identity) AdoptingLocker, path string) {
	ctx := context.Background()
	alice := domain.Identity{User: "alice", Station: "ws-01"}

	first := newLocker(alice)
	_, info, err := first.Acquire(ctx, path)
	require.NoError(t, err)

	second := newLocker(alice)
	ok, err := second.Adopt(ctx, path, "not-the-token")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, second.Release(ctx, path))
	state, _, err := first.Inspect(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state, "release without adoption is a no-op")

	ok, err = second.Adopt(ctx, path, info.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx, path))
	state, _, err = first.Inspect(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.Unlocked, state)
}
