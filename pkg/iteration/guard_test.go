package iteration_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/iteration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard() *iteration.Guard {
	g := iteration.NewGuard(domain.Identity{User: "alice", Station: "ws-01"})
	g.Clock = func() time.Time { return time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC) }
	return g
}

func TestCheckIteration_Idempotent(t *testing.T) {
	dir := t.TempDir()
	g := newGuard()
	ctx := context.Background()

	outcome, err := g.CheckIteration(ctx, dir, "shots", "shot", "010")
	require.NoError(t, err)
	assert.Equal(t, domain.ToRun, outcome)

	path := iteration.MarkerPath(dir, "shots", "shot", "010")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	for range 5 {
		outcome, err = g.CheckIteration(ctx, dir, "shots", "shot", "010")
		require.NoError(t, err)
		assert.Equal(t, domain.AlreadyDone, outcome)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "existing marker must not be touched")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCheckIteration_MarkerContent(t *testing.T) {
	dir := t.TempDir()
	_, err := newGuard().CheckIteration(context.Background(), dir, "shots", "shot", "010")
	require.NoError(t, err)

	m, err := iteration.ReadMarker(iteration.MarkerPath(dir, "shots", "shot", "010"))
	require.NoError(t, err)
	assert.Equal(t, domain.Marker{
		Date: "2024-03-01", Time: "10:15:00", Station: "ws-01", User: "alice",
		LoopNode: "shots", Iterator: "shot", IterValue: "010",
	}, m)
}

func TestMarkerPath_Injective(t *testing.T) {
	tuples := [][3]string{
		{"a_", "b", "c"},
		{"a", "_b", "c"},
		{"a__b", "c", "d"},
		{"a", "b__c", "d"},
		{"shots", "shot", "010/020"},
		{"shots", "shot", "010%2F020"},
		{"shots", "shot", "C:\\x"},
	}
	seen := make(map[string][3]string)
	for _, tup := range tuples {
		p := iteration.MarkerPath("", tup[0], tup[1], tup[2])
		prev, dup := seen[p]
		assert.False(t, dup, "%v and %v collide on %s", prev, tup, p)
		seen[p] = tup
		assert.Equal(t, p, filepath.Base(p), "marker name must not create directories")
	}
}

func TestCheckIteration_DistinctValues(t *testing.T) {
	dir := t.TempDir()
	g := newGuard()
	for _, v := range []string{"010", "020", "030"} {
		outcome, err := g.CheckIteration(context.Background(), dir, "shots", "shot", v)
		require.NoError(t, err)
		assert.Equal(t, domain.ToRun, outcome)
	}
}

func TestCheckIteration_Concurrent(t *testing.T) {
	dir := t.TempDir()
	const n = 8
	var wg sync.WaitGroup
	outcomes := make([]domain.Outcome, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], _ = newGuard().CheckIteration(context.Background(), dir, "shots", "shot", "010")
		}()
	}
	wg.Wait()

	toRun := 0
	for _, o := range outcomes {
		if o == domain.ToRun {
			toRun++
		}
	}
	assert.Equal(t, 1, toRun)
}

func TestCheckIteration_WriteFailure(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	outcome, err := newGuard().CheckIteration(context.Background(), dir, "shots", "shot", "010")
	assert.ErrorIs(t, err, domain.ErrMarkerWrite)
	assert.NotEqual(t, domain.ToRun, outcome)
}

func TestCheckIteration_Hooks(t *testing.T) {
	dir := t.TempDir()
	g := newGuard()
	var got []domain.EventType
	g.Hooks.OnIteration = func(_ context.Context, e *domain.IterationEvent) { got = append(got, e.Type) }

	_, err := g.CheckIteration(context.Background(), dir, "shots", "shot", "010")
	require.NoError(t, err)
	_, err = g.CheckIteration(context.Background(), dir, "shots", "shot", "010")
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventIterationRun, domain.EventIterationSkip}, got)
}
