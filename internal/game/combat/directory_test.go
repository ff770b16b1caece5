package combat_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/combat"
	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

func TestDirectory_InsertIfAbsent(t *testing.T) {
	dir := combat.NewDirectory(zap.NewNop())
	w := &fakeWorld{}
	deps := testDeps(w, maxSource{}, nil)

	build := func() *combat.Instance {
		return combat.NewInstance("arena", testCombatConfig(), deps, dir.Remove)
	}

	first, created := dir.GetOrCreate("arena", build)
	require.True(t, created)

	second, created := dir.GetOrCreate("arena", build)
	require.False(t, created)
	require.Same(t, first, second)

	require.Equal(t, 1, dir.Active())
}

func TestDirectory_ConcurrentEngagesShareOneInstance(t *testing.T) {
	dir := combat.NewDirectory(zap.NewNop())
	w := &fakeWorld{}
	deps := testDeps(w, maxSource{}, nil)

	const goroutines = 16
	results := make([]*combat.Instance, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, _ := dir.GetOrCreate("arena", func() *combat.Instance {
				return combat.NewInstance("arena", testCombatConfig(), deps, dir.Remove)
			})
			results[i] = inst
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		require.Same(t, results[0], results[i])
	}
	require.Equal(t, 1, dir.Active())
}

func TestDirectory_RemoveIsStaleSafe(t *testing.T) {
	dir := combat.NewDirectory(zap.NewNop())
	w := &fakeWorld{}
	deps := testDeps(w, maxSource{}, nil)

	old := combat.NewInstance("arena", testCombatConfig(), deps, nil)
	current, _ := dir.GetOrCreate("arena", func() *combat.Instance {
		return combat.NewInstance("arena", testCombatConfig(), deps, nil)
	})

	// Removing an instance that no longer owns the room must not evict the
	// current one.
	dir.Remove(old)
	got, ok := dir.Get("arena")
	require.True(t, ok)
	require.Same(t, current, got)
}

func TestDirectory_ShutdownEndsAllInstances(t *testing.T) {
	dir := combat.NewDirectory(zap.NewNop())
	w := &fakeWorld{}
	mgr := npc.NewManager(zap.NewNop())
	deps := testDeps(w, minSource{}, mgr)

	// Two endless stand-offs in different rooms: every attack is a
	// natural-1 miss, so neither instance terminates on its own.
	for _, room := range []string{"arena", "cellar"} {
		inst, _ := dir.GetOrCreate(room, func() *combat.Instance {
			return combat.NewInstance(room, testCombatConfig(), deps, dir.Remove)
		})
		brute := spawnNPC(t, mgr, npc.BehaviorAggressive, 1000)
		pl := testPlayer(room, 1000, 0)
		require.NoError(t, inst.Join(pl, entity.WrapNPC(brute)))
		inst.Start()
	}
	require.Equal(t, 2, dir.Active())

	dir.Shutdown()
	require.Equal(t, 0, dir.Active())
}

func TestDirectory_EntityIndexClearedOnEnd(t *testing.T) {
	dir := combat.NewDirectory(zap.NewNop())
	w := &fakeWorld{}
	deps := testDeps(w, maxSource{}, nil)

	inst, _ := dir.GetOrCreate("arena", func() *combat.Instance {
		return combat.NewInstance("arena", testCombatConfig(), deps, dir.Remove)
	})
	dir.Register("p1", inst)

	found, ok := dir.FindByEntity("p1")
	require.True(t, ok)
	require.Same(t, inst, found)

	inst.End("done")
	_, ok = dir.FindByEntity("p1")
	require.False(t, ok)
	_, ok = dir.Get("arena")
	require.False(t, ok)
}
