package combat_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/config"
	"github.com/waystone-mud/waystone/internal/game/combat"
	"github.com/waystone-mud/waystone/internal/game/death"
	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/npc"
	"github.com/waystone-mud/waystone/internal/game/world"
)

// maxSource makes every die land on its highest face: d20 rolls are always
// natural 20s and flee attempts always succeed.
type maxSource struct{}

func (maxSource) Intn(n int) int { return n - 1 }

// minSource makes every die land on 1: attacks are natural-1 misses and
// flee attempts always fail.
type minSource struct{}

func (minSource) Intn(_ int) int { return 0 }

// fixedSource always returns the same Intn value.
type fixedSource struct{ v int }

func (s fixedSource) Intn(n int) int {
	if s.v >= n {
		return n - 1
	}
	return s.v
}

type fakeWorld struct {
	mu    sync.Mutex
	msgs  []string
	exits []world.Exit
}

func (w *fakeWorld) Exits(_ string) []world.Exit { return w.exits }

func (w *fakeWorld) Broadcast(_, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, text)
}

func (w *fakeWorld) messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.msgs...)
}

func (w *fakeWorld) contains(substr string) bool {
	for _, m := range w.messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func testCombatConfig() config.CombatConfig {
	return config.CombatConfig{
		RoundPeriod:      5 * time.Millisecond,
		FleeDC:           12,
		NPCFleeThreshold: 0.2,
		MovementLag:      0,
		FailedFleeLag:    0,
		BaseXPPerLevel:   10,
	}
}

func testDeps(w *fakeWorld, src dice.Source, npcs *npc.Manager) combat.Deps {
	logger := zap.NewNop()
	deps := combat.Deps{
		World:     w,
		Roller:    dice.NewRoller(src, logger),
		Mortician: death.NewHandler(death.NewRegistry(logger), "sanctum", logger),
		Logger:    logger,
	}
	if npcs != nil {
		deps.NPCs = npcs
	}
	return deps
}

func testPlayer(name string, maxHP, wimpy int) *entity.Player {
	return entity.NewPlayer(entity.PlayerRecord{
		ID:        "player-" + name,
		Name:      name,
		Level:     1,
		CurrentHP: maxHP,
		MaxHP:     maxHP,
		Wimpy:     wimpy,
		RoomID:    "arena",
	})
}

func spawnNPC(t *testing.T, mgr *npc.Manager, behavior npc.Behavior, maxHP int) *npc.Instance {
	t.Helper()
	tmpl := &npc.Template{
		ID:       "test_" + string(behavior),
		Name:     "a " + strings.ReplaceAll(string(behavior), "_", " "),
		Keywords: []string{"dummy", "rat"},
		Level:    1,
		MaxHP:    maxHP,
		Behavior: behavior,
	}
	inst, err := mgr.Spawn(tmpl, "arena")
	require.NoError(t, err)
	return inst
}

func waitEnded(t *testing.T, inst *combat.Instance) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		inst.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("combat instance did not end")
	}
	require.Equal(t, combat.StateEnded, inst.State())
}

func TestInstance_InitiativeSortedDescending(t *testing.T) {
	w := &fakeWorld{}
	mgr := npc.NewManager(zap.NewNop())

	// Distinct dexterity scores with a fixed die make initiative a direct
	// function of the modifier.
	deps := testDeps(w, fixedSource{v: 9}, mgr) // every d20 rolls 10
	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)

	slow := entity.NewPlayer(entity.PlayerRecord{
		ID: "p-slow", Name: "Slow", Level: 1, CurrentHP: 10, MaxHP: 10,
		Attributes: map[string]int{"dexterity": 8}, RoomID: "arena",
	})
	fast := entity.NewPlayer(entity.PlayerRecord{
		ID: "p-fast", Name: "Fast", Level: 1, CurrentHP: 10, MaxHP: 10,
		Attributes: map[string]int{"dexterity": 18}, RoomID: "arena",
	})

	pSlow := inst.AddParticipant(slow)
	pFast := inst.AddParticipant(fast)
	require.Equal(t, 9, pSlow.Initiative)  // 10 - 1
	require.Equal(t, 14, pFast.Initiative) // 10 + 4

	order := inst.Participants()
	require.Equal(t, "p-fast", order[0].Entity.ID())
	require.Equal(t, "p-slow", order[1].Entity.ID())
}

func TestInstance_InitiativeTiesPreserveRegistrationOrder(t *testing.T) {
	w := &fakeWorld{}
	deps := testDeps(w, fixedSource{v: 9}, nil)
	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)

	for _, name := range []string{"First", "Second", "Third"} {
		inst.AddParticipant(testPlayer(name, 10, 0))
	}

	order := inst.Participants()
	require.Equal(t, "player-First", order[0].Entity.ID())
	require.Equal(t, "player-Second", order[1].Entity.ID())
	require.Equal(t, "player-Third", order[2].Entity.ID())
}

func TestInstance_EndIsIdempotent(t *testing.T) {
	w := &fakeWorld{}
	deps := testDeps(w, maxSource{}, nil)
	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)

	require.True(t, inst.End("over"))
	require.False(t, inst.End("over again"))
	waitEnded(t, inst)

	// Only the first call broadcast anything.
	count := 0
	for _, m := range w.messages() {
		if strings.Contains(m, "over") {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestInstance_TrainingDummyEndToEnd(t *testing.T) {
	w := &fakeWorld{}
	mgr := npc.NewManager(zap.NewNop())
	logger := zap.NewNop()
	registry := death.NewRegistry(logger)

	deps := testDeps(w, maxSource{}, mgr)
	deps.Mortician = death.NewHandler(registry, "sanctum", logger)

	dummy := spawnNPC(t, mgr, npc.BehaviorTrainingDummy, 10)
	pl := testPlayer("Aldric", 30, 0)

	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)
	require.NoError(t, inst.Join(pl, entity.WrapNPC(dummy)))
	inst.Start()
	waitEnded(t, inst)

	// Every player d20 is a natural 20: a 12-damage critical kills the
	// 10-health dummy in round one. The dummy never acts.
	require.False(t, dummy.Alive())
	require.Equal(t, 1, inst.Round())
	cur, _ := pl.Health()
	require.Equal(t, 30, cur, "training dummy must never counterattack")

	// All experience goes to the lone contributor.
	require.Equal(t, 10, pl.XP())

	// Corpse handed off, instance despawned.
	require.Len(t, registry.InRoom("arena"), 1)
	_, alive := mgr.Get(dummy.ID)
	require.False(t, alive)
}

func TestInstance_WimpyAutoFleeAfterThreshold(t *testing.T) {
	w := &fakeWorld{exits: []world.Exit{{Direction: world.North, Target: "hallway"}}}
	mgr := npc.NewManager(zap.NewNop())
	deps := testDeps(w, maxSource{}, mgr)

	brute := spawnNPC(t, mgr, npc.BehaviorAggressive, 100)
	pl := testPlayer("Aldric", 100, 50)

	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)
	require.NoError(t, inst.Join(pl, entity.WrapNPC(brute)))
	inst.Start()
	waitEnded(t, inst)

	// Critical hits land 12 damage per round; after the fifth (total 60)
	// the player's health fraction drops below 50% and the wimpy flee
	// fires immediately, before the player can attack again.
	require.True(t, w.contains("Aldric panics!"))
	require.True(t, w.contains("Aldric flees north!"))
	require.Equal(t, "hallway", pl.RoomID())
	cur, _ := pl.Health()
	require.Equal(t, 40, cur)

	for _, p := range inst.Participants() {
		if p.Entity.ID() == pl.ID() {
			require.True(t, p.Fled())
		}
	}
}

func TestInstance_WimpyNeverFiresAboveThreshold(t *testing.T) {
	w := &fakeWorld{}
	mgr := npc.NewManager(zap.NewNop())
	deps := testDeps(w, maxSource{}, mgr)

	// Wimpy 30 on a 100-HP player: the aggressive NPC dies (40 HP, 12
	// damage per round) before the player ever drops below 70.
	brute := spawnNPC(t, mgr, npc.BehaviorAggressive, 40)
	pl := testPlayer("Aldric", 100, 30)

	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)
	require.NoError(t, inst.Join(pl, entity.WrapNPC(brute)))
	inst.Start()
	waitEnded(t, inst)

	require.False(t, w.contains("panics"))
	require.False(t, brute.Alive())
}

func TestInstance_FailedFleeCostsTheAction(t *testing.T) {
	w := &fakeWorld{}
	mgr := npc.NewManager(zap.NewNop())
	deps := testDeps(w, minSource{}, mgr)

	// Passive NPCs always try to flee, and every roll is a natural 1.
	coward := spawnNPC(t, mgr, npc.BehaviorPassive, 20)
	pl := testPlayer("Aldric", 100, 0)

	cfg := testCombatConfig()
	inst := combat.NewInstance("arena", cfg, deps, nil)
	require.NoError(t, inst.Join(pl, entity.WrapNPC(coward)))
	inst.Start()
	time.Sleep(50 * time.Millisecond)
	inst.End("enough")
	waitEnded(t, inst)

	require.True(t, w.contains("tries to flee but cannot escape!"))
	// Natural-1 attacks never land.
	require.False(t, w.contains("damage"))
	cur, _ := coward.Health()
	require.Equal(t, 20, cur)
}

// crashingWorld fails its broadcast sink on round announcements, the way a
// broken session writer might.
type crashingWorld struct {
	fakeWorld
}

func (w *crashingWorld) Broadcast(roomID, text string) {
	if strings.HasPrefix(text, "--- Round") {
		panic("broadcast sink failure")
	}
	w.fakeWorld.Broadcast(roomID, text)
}

func TestInstance_SchedulerPanicForcesEnd(t *testing.T) {
	w := &crashingWorld{}
	mgr := npc.NewManager(zap.NewNop())
	logger := zap.NewNop()
	deps := combat.Deps{
		World:     w,
		Roller:    dice.NewRoller(minSource{}, logger),
		Mortician: death.NewHandler(death.NewRegistry(logger), "sanctum", logger),
		NPCs:      mgr,
		Logger:    logger,
	}

	brute := spawnNPC(t, mgr, npc.BehaviorAggressive, 1000)
	pl := testPlayer("Aldric", 1000, 0)

	inst := combat.NewInstance("arena", testCombatConfig(), deps, nil)
	require.NoError(t, inst.Join(pl, entity.WrapNPC(brute)))
	inst.Start()

	// The round-one header panic unwinds the scheduler; the instance must
	// still reach Ended instead of leaving everyone stuck in combat.
	waitEnded(t, inst)
	require.True(t, w.contains("The fighting dies down."))
}
