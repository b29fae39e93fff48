package grapher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/grapher"
	"github.com/aretw0/grapher/pkg/adapters/memory"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Identity{User: "alice", Station: "ws-01"}
	bob   = domain.Identity{User: "bob", Station: "ws-02"}
)

func TestShot010Scenario(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gp_test.py")

	doc := graph.NewDocument()
	root, err := doc.AddNode(domain.NewNode("Shot010", domain.NodeTypeModul), graph.NoParent, graph.Append)
	require.NoError(t, err)
	child, err := doc.AddNode(domain.NewNode("Shot010", domain.NodeTypeCmdData), root, graph.Append)
	require.NoError(t, err)
	node, err := doc.Tree.Node(child)
	require.NoError(t, err)
	assert.Equal(t, "Shot010_1", node.Name)

	// Save and reload.
	a := grapher.New(alice)
	session, err := a.Create(ctx, path, doc)
	require.NoError(t, err)
	require.NoError(t, session.Close(ctx))

	loaded, err := a.Load(ctx, path)
	require.NoError(t, err)
	assert.True(t, graph.Equal(doc, loaded))
	rootID, ok := loaded.Tree.FindByName("Shot010")
	require.True(t, ok)
	childID, ok := loaded.Tree.FindByName("Shot010_1")
	require.True(t, ok)
	parent, err := loaded.Tree.Parent(childID)
	require.NoError(t, err)
	assert.Equal(t, rootID, parent)

	// A holds the lock, B is refused.
	sa, err := a.Open(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, sa.State())

	b := grapher.New(bob)
	sb, err := b.Open(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, sb.State())
	assert.Equal(t, "alice", sb.Holder().User)
	assert.ErrorIs(t, sb.Save(ctx), domain.ErrReadOnlyViolation)

	// B breaks the lock.
	require.NoError(t, sb.BreakLock(ctx))
	assert.Equal(t, domain.LockedByMe, sb.State())
	state, holder, err := a.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, state)
	assert.Equal(t, "bob", holder.User, "alice's lock metadata must be gone")

	// A closing its stale session must not free B's lock.
	require.NoError(t, sa.Close(ctx))
	state, holder, err = a.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, state)
	assert.Equal(t, "bob", holder.User)

	require.NoError(t, sb.Save(ctx))
	require.NoError(t, sb.Close(ctx))
	state, _, err = a.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.Unlocked, state)
}

func TestOpen_ReleasesLockWhenLoadFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "gp_broken.py")
	require.NoError(t, os.WriteFile(path, []byte("tree = nope\n"), 0644))

	editor := grapher.New(alice)
	_, err := editor.Open(ctx, path)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)

	_, err = os.Stat(filepath.Join(dir, "gpLock_broken.py"))
	assert.True(t, os.IsNotExist(err), "lock must be released after a failed load")
}

func TestOpen_ReadOnlyLoadFailureKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gp_missing.py")

	a := grapher.New(alice)
	sa, err := a.Create(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = grapher.New(bob).Open(ctx, path)
	assert.ErrorIs(t, err, domain.ErrDocumentRead)

	state, _, err := a.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)
	require.NoError(t, sa.Close(ctx))
}

func TestCreate_RefusedWhenLocked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gp_shot.py")

	sa, err := grapher.New(alice).Create(ctx, path, nil)
	require.NoError(t, err)
	defer sa.Close(ctx)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	doc := graph.NewDocument()
	doc.Comment = "bob's version"
	_, err = grapher.New(bob).Create(ctx, path, doc)
	assert.ErrorIs(t, err, domain.ErrReadOnlyViolation)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveAs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first := filepath.Join(dir, "gp_v1.py")
	second := filepath.Join(dir, "gp_v2.py")

	editor := grapher.New(alice)
	s, err := editor.Create(ctx, first, nil)
	require.NoError(t, err)

	s.Document.Comment = "moved"
	require.NoError(t, s.SaveAs(ctx, second))
	assert.Equal(t, second, s.Path())
	assert.Equal(t, second, s.Document.SourcePath)

	state, _, err := editor.LockStatus(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.Unlocked, state, "old lock is released")

	state, _, err = editor.LockStatus(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)

	loaded, err := editor.Load(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "moved", loaded.Comment)
	require.NoError(t, s.Close(ctx))
}

func TestSave_AfterLockBroken(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "gp_shot.py")

	a := grapher.New(alice)
	sa, err := a.Create(ctx, path, nil)
	require.NoError(t, err)
	require.False(t, sa.ReadOnly())

	sb, err := grapher.New(bob).Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, sb.BreakLock(ctx))
	sb.Document.Comment = "bob's edit"
	require.NoError(t, sb.Save(ctx))

	sa.Document.Comment = "alice stale edit"
	assert.ErrorIs(t, sa.Save(ctx), domain.ErrReadOnlyViolation)
	assert.True(t, sa.ReadOnly())
	assert.Equal(t, "bob", sa.Holder().User)

	loaded, err := a.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "bob's edit", loaded.Comment)

	// Moving away must leave bob's lock in place.
	require.NoError(t, sa.SaveAs(ctx, filepath.Join(dir, "gp_copy.py")))
	state, holder, err := a.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, state)
	assert.Equal(t, "bob", holder.User)

	require.NoError(t, sa.Close(ctx))
	require.NoError(t, sb.Close(ctx))
}

func TestSaveAs_AfterLockBroken(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "gp_shot.py")

	a := grapher.New(alice)
	sa, err := a.Create(ctx, path, nil)
	require.NoError(t, err)

	sb, err := grapher.New(bob).Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, sb.BreakLock(ctx))

	copyPath := filepath.Join(dir, "gp_copy.py")
	require.NoError(t, sa.SaveAs(ctx, copyPath))
	assert.Equal(t, copyPath, sa.Path())
	assert.False(t, sa.ReadOnly())

	state, holder, err := a.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByOther, state)
	assert.Equal(t, "bob", holder.User)

	require.NoError(t, sb.Save(ctx))
	require.NoError(t, sa.Close(ctx))
	require.NoError(t, sb.Close(ctx))
}

func TestSaveAs_TargetLocked(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mine := filepath.Join(dir, "gp_mine.py")
	theirs := filepath.Join(dir, "gp_theirs.py")

	sb, err := grapher.New(bob).Create(ctx, theirs, nil)
	require.NoError(t, err)
	defer sb.Close(ctx)

	sa, err := grapher.New(alice).Create(ctx, mine, nil)
	require.NoError(t, err)
	defer sa.Close(ctx)

	assert.ErrorIs(t, sa.SaveAs(ctx, theirs), domain.ErrReadOnlyViolation)
	assert.Equal(t, mine, sa.Path())
	assert.False(t, sa.ReadOnly())
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gp_shot.py")

	sa, err := grapher.New(alice).Create(ctx, path, nil)
	require.NoError(t, err)

	sb, err := grapher.New(bob).Open(ctx, path)
	require.NoError(t, err)
	require.True(t, sb.ReadOnly())

	ok, err := sb.Upgrade(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	sa.Document.Comment = "final"
	require.NoError(t, sa.Save(ctx))
	require.NoError(t, sa.Close(ctx))

	ok, err = sb.Upgrade(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "final", sb.Document.Comment, "upgrade reloads the latest save")
	require.NoError(t, sb.Save(ctx))
	require.NoError(t, sb.Close(ctx))
}

func TestClose_ReadOnlyNeverDeletes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gp_shot.py")

	editor := grapher.New(alice)
	sa, err := editor.Create(ctx, path, nil)
	require.NoError(t, err)

	sb, err := grapher.New(bob).Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, sb.Close(ctx))
	require.NoError(t, sb.Close(ctx))

	state, _, err := editor.LockStatus(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.LockedByMe, state)

	require.NoError(t, sa.Close(ctx))
	assert.ErrorIs(t, sa.Save(ctx), domain.ErrReadOnlyViolation, "closed sessions cannot save")
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gp_shot.py")
	var locks, docs int
	hooks := domain.LifecycleHooks{
		OnLock:     func(context.Context, *domain.LockEvent) { locks++ },
		OnDocument: func(context.Context, *domain.DocumentEvent) { docs++ },
	}

	s, err := grapher.New(alice, grapher.WithLifecycleHooks(hooks)).Create(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	assert.Equal(t, 2, locks, "acquire and release")
	assert.Equal(t, 1, docs)
}

func TestEditor_InMemory(t *testing.T) {
	ctx := context.Background()
	store, locks := memory.NewStore(), memory.NewLocks()
	a := grapher.New(alice, grapher.WithStore(store), grapher.WithLocker(locks.Locker(alice)))
	b := grapher.New(bob, grapher.WithStore(store), grapher.WithLocker(locks.Locker(bob)))
	path := "/show/seq/gp_Shot030.py"

	sa, err := a.Create(ctx, path, nil)
	require.NoError(t, err)
	_, err = sa.Document.AddNode(domain.NewNode("render", domain.NodeTypePyData), graph.NoParent, graph.Append)
	require.NoError(t, err)
	require.NoError(t, sa.Save(ctx))

	sb, err := b.Open(ctx, path)
	require.NoError(t, err)
	assert.True(t, sb.ReadOnly())
	assert.Equal(t, 1, sb.Document.Tree.Len())

	require.NoError(t, sa.Close(ctx))
	upgraded, err := sb.Upgrade(ctx)
	require.NoError(t, err)
	assert.True(t, upgraded)
	require.NoError(t, sb.Save(ctx))
	require.NoError(t, sb.Close(ctx))
}
