package death_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/death"
	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/experience"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

func deadPlayer() *entity.Player {
	p := entity.NewPlayer(entity.PlayerRecord{
		ID:        "p1",
		Name:      "Aldric",
		Level:     2,
		XP:        250,
		CurrentHP: 10,
		MaxHP:     30,
		RoomID:    "rat_den",
	})
	p.ApplyDamage(100, "rat-1")
	return p
}

func deadNPC() *entity.NPC {
	tmpl := &npc.Template{ID: "giant_rat", Name: "a giant rat", Level: 2, MaxHP: 12, Behavior: npc.BehaviorAggressive}
	inst := npc.NewInstance("n1", tmpl, "rat_den")
	inst.ApplyDamage(100, "p1")
	return entity.WrapNPC(inst)
}

func TestHandlePlayerDeath(t *testing.T) {
	reg := death.NewRegistry(zap.NewNop())
	h := death.NewHandler(reg, "university_main_hall", zap.NewNop())

	p := deadPlayer()
	now := time.Now()
	corpse := h.HandlePlayerDeath(p, now)

	require.Equal(t, "rat_den", corpse.RoomID)
	require.Equal(t, entity.KindPlayer, corpse.Kind)

	// Level 2 span is 200, so the penalty is 20.
	require.Equal(t, 230, p.XP())
	require.Equal(t, 2, p.Level())

	cur, _ := p.Health()
	require.Equal(t, 1, cur)
	require.Equal(t, "university_main_hall", p.RoomID())

	require.True(t, p.Weakened(now))
	require.False(t, p.Weakened(now.Add(death.WeaknessDuration)))
}

func TestHandlePlayerDeath_PenaltyCannotDelevel(t *testing.T) {
	reg := death.NewRegistry(zap.NewNop())
	h := death.NewHandler(reg, "university_main_hall", zap.NewNop())

	p := entity.NewPlayer(entity.PlayerRecord{
		ID: "p1", Name: "Aldric", Level: 2,
		XP:        experience.ThresholdFor(2) + 5,
		CurrentHP: 0, MaxHP: 30, RoomID: "rat_den",
	})
	h.HandlePlayerDeath(p, time.Now())

	require.Equal(t, experience.ThresholdFor(2), p.XP())
	require.Equal(t, 2, p.Level())
}

func TestRegistry_DecayWindows(t *testing.T) {
	reg := death.NewRegistry(zap.NewNop())
	now := time.Now()

	nc := reg.Add(deadNPC(), npc.LootResult{Currency: 3}, now)
	pc := reg.Add(deadPlayer(), npc.LootResult{}, now)

	require.Len(t, reg.InRoom("rat_den"), 2)

	// After the NPC window only the player corpse survives.
	decayed := reg.Sweep(now.Add(death.NPCDecay))
	require.Len(t, decayed, 1)
	require.Equal(t, nc.ID, decayed[0].ID)

	remaining := reg.InRoom("rat_den")
	require.Len(t, remaining, 1)
	require.Equal(t, pc.ID, remaining[0].ID)

	decayed = reg.Sweep(now.Add(death.PlayerDecay))
	require.Len(t, decayed, 1)
	require.Empty(t, reg.InRoom("rat_den"))
}

func TestRegistry_CorpseCarriesLoot(t *testing.T) {
	reg := death.NewRegistry(zap.NewNop())
	loot := npc.LootResult{
		Currency: 5,
		Items:    []npc.LootItem{{ItemDefID: "rat_pelt", InstanceID: "i1", Quantity: 1}},
	}
	c := reg.Add(deadNPC(), loot, time.Now())

	got, ok := reg.Get(c.ID)
	require.True(t, ok)
	require.Equal(t, 5, got.Loot.Currency)
	require.Len(t, got.Loot.Items, 1)
}
