package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/grapher/pkg/adapters/redis"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunDocumentLockerContract(t,
		func(id domain.Identity) ports.DocumentLocker { return redis.NewFromClient(client, id) },
		func(name string) string { return "/show/seq/gp_" + name + ".py" },
	)
}

func TestRedisLocker_KeyLayout(t *testing.T) {
	mr, client := setup(t)
	l := redis.NewFromClient(client, domain.Identity{User: "alice", Station: "ws-01"}, redis.WithPrefix("test:"))
	ctx := context.Background()

	state, _, err := l.Acquire(ctx, "/show/seq/gp_Shot010.py")
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)
	assert.True(t, mr.Exists("test:/show/seq/gpLock_Shot010.py"), "lock key should be set in Redis")

	require.NoError(t, l.Release(ctx, "/show/seq/gp_Shot010.py"))
	assert.False(t, mr.Exists("test:/show/seq/gpLock_Shot010.py"), "lock key should be removed after release")
}

func TestRedisLocker_TTL(t *testing.T) {
	mr, client := setup(t)
	alice := redis.NewFromClient(client, domain.Identity{User: "alice"}, redis.WithTTL(time.Minute))
	bob := redis.NewFromClient(client, domain.Identity{User: "bob"})
	ctx := context.Background()

	_, _, err := alice.Acquire(ctx, "/show/gp_Shot010.py")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	state, info, err := bob.Acquire(ctx, "/show/gp_Shot010.py")
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)
	assert.Equal(t, "bob", info.User)
}

func TestRedisLocker_InvalidName(t *testing.T) {
	_, client := setup(t)
	l := redis.NewFromClient(client, domain.Identity{User: "alice"})
	_, _, err := l.Acquire(context.Background(), "/show/scene.py")
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentName)
}

func TestRedisLocker_BackendDown(t *testing.T) {
	mr, client := setup(t)
	l := redis.NewFromClient(client, domain.Identity{User: "alice"})
	mr.Close()

	state, _, err := l.Acquire(context.Background(), "/show/gp_Shot010.py")
	assert.ErrorIs(t, err, domain.ErrLockIO)
	assert.Equal(t, domain.Unlocked, state)
}

func TestRedisLocker_ReleaseRetriesAfterError(t *testing.T) {
	mr, client := setup(t)
	l := redis.NewFromClient(client, domain.Identity{User: "alice"}, redis.WithPrefix("test:"))
	ctx := context.Background()

	_, _, err := l.Acquire(ctx, "/show/gp_Shot010.py")
	require.NoError(t, err)

	mr.SetError("LOADING server is loading")
	assert.ErrorIs(t, l.Release(ctx, "/show/gp_Shot010.py"), domain.ErrLockIO)
	mr.SetError("")
	assert.True(t, mr.Exists("test:/show/gpLock_Shot010.py"))

	require.NoError(t, l.Release(ctx, "/show/gp_Shot010.py"))
	assert.False(t, mr.Exists("test:/show/gpLock_Shot010.py"), "second release must remove the key")
}

func TestRedisLocker_Adopt(t *testing.T) {
	_, client := setup(t)
	ports.RunLockAdopterContract(t,
		func(id domain.Identity) ports.AdoptingLocker { return redis.NewFromClient(client, id) },
		"/show/gp_Shot010.py",
	)
}
