package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/combat"
	"github.com/waystone-mud/waystone/internal/game/death"
	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

func newTestEngine(t *testing.T, src dice.Source) (*combat.Engine, *npc.Manager, *fakeWorld, *death.Registry) {
	t.Helper()
	w := &fakeWorld{}
	mgr := npc.NewManager(zap.NewNop())
	logger := zap.NewNop()
	registry := death.NewRegistry(logger)

	deps := testDeps(w, src, mgr)
	deps.Mortician = death.NewHandler(registry, "sanctum", logger)
	return combat.NewEngine(testCombatConfig(), mgr, deps), mgr, w, registry
}

func TestEngine_EngageUnknownTarget(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, maxSource{})
	pl := testPlayer("Aldric", 30, 0)

	err := engine.Engage(pl, "wolf")
	require.ErrorIs(t, err, combat.ErrTargetNotFound)
}

func TestEngine_EngageRunsCombatToSettlement(t *testing.T) {
	engine, mgr, w, registry := newTestEngine(t, maxSource{})
	dummy := spawnNPC(t, mgr, npc.BehaviorTrainingDummy, 10)
	pl := testPlayer("Aldric", 30, 0)

	require.NoError(t, engine.Engage(pl, "dummy"))

	inst, ok := engine.Directory().Get("arena")
	require.True(t, ok)
	waitEnded(t, inst)

	require.False(t, dummy.Alive())
	require.Equal(t, 10, pl.XP())
	require.Len(t, registry.InRoom("arena"), 1)
	require.True(t, w.contains("is DEAD!"))
	require.Equal(t, 0, engine.Directory().Active())
}

func TestEngine_SecondEngageJoinsExistingInstance(t *testing.T) {
	engine, mgr, _, _ := newTestEngine(t, minSource{})
	spawnNPC(t, mgr, npc.BehaviorAggressive, 1000)

	pl1 := testPlayer("Aldric", 1000, 0)
	pl2 := testPlayer("Brenna", 1000, 0)

	require.NoError(t, engine.Engage(pl1, "rat"))
	require.NoError(t, engine.Engage(pl2, "rat"))

	require.Equal(t, 1, engine.Directory().Active())
	inst, _ := engine.Directory().Get("arena")
	require.Len(t, inst.Participants(), 3)

	engine.Shutdown()
}

func TestEngine_FleeRequiresCombat(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, maxSource{})
	pl := testPlayer("Aldric", 30, 0)

	_, err := engine.Flee(pl)
	require.ErrorIs(t, err, combat.ErrNotInCombat)
}

func TestEngine_ManualFleeLeavesCombat(t *testing.T) {
	engine, mgr, w, _ := newTestEngine(t, maxSource{})
	spawnNPC(t, mgr, npc.BehaviorAggressive, 100000)
	pl := testPlayer("Aldric", 100000, 0)

	require.NoError(t, engine.Engage(pl, "rat"))

	// Every d20 is a 20, so the first attempt escapes.
	var ok bool
	var err error
	require.Eventually(t, func() bool {
		ok, err = engine.Flee(pl)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, ok)
	require.True(t, w.contains("flees from combat!"))

	inst, found := engine.Directory().Get("arena")
	if found {
		waitEnded(t, inst)
	}
}

func TestEngine_SetWimpyValidatesRange(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, maxSource{})
	pl := testPlayer("Aldric", 30, 0)

	require.NoError(t, engine.SetWimpy(context.Background(), pl, 45))
	require.Equal(t, 45, pl.Wimpy())

	require.ErrorIs(t, engine.SetWimpy(context.Background(), pl, 100), combat.ErrInvalidWimpy)
	require.ErrorIs(t, engine.SetWimpy(context.Background(), pl, -5), combat.ErrInvalidWimpy)
	require.Equal(t, 45, pl.Wimpy())
}

func TestEngine_UseSkillOutsideCombat(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, maxSource{})
	pl := testPlayer("Aldric", 30, 0)

	require.ErrorIs(t, engine.UseSkill(pl, "bash", "rat"), combat.ErrNotInCombat)
	require.ErrorIs(t, engine.SwitchTarget(pl, "rat"), combat.ErrNotInCombat)
	require.ErrorIs(t, engine.Defend(pl), combat.ErrNotInCombat)
}

func TestEngine_SwitchTargetBetweenNPCs(t *testing.T) {
	engine, mgr, w, _ := newTestEngine(t, minSource{})

	ratTmpl := &npc.Template{
		ID: "rat", Name: "a giant rat", Keywords: []string{"rat"},
		Level: 1, MaxHP: 1000, Behavior: npc.BehaviorAggressive,
	}
	batTmpl := &npc.Template{
		ID: "bat", Name: "a cave bat", Keywords: []string{"bat"},
		Level: 1, MaxHP: 1000, Behavior: npc.BehaviorAggressive,
	}
	_, err := mgr.Spawn(ratTmpl, "arena")
	require.NoError(t, err)
	_, err = mgr.Spawn(batTmpl, "arena")
	require.NoError(t, err)

	pl := testPlayer("Aldric", 1000, 0)
	require.NoError(t, engine.Engage(pl, "rat"))
	require.NoError(t, engine.Engage(pl, "bat"))

	require.NoError(t, engine.SwitchTarget(pl, "bat"))
	require.True(t, w.contains("turns to face a cave bat!"))

	require.ErrorIs(t, engine.SwitchTarget(pl, "wolf"), combat.ErrInvalidTarget)

	engine.Shutdown()
}
