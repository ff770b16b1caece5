package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

func TestModifier(t *testing.T) {
	cases := []struct {
		score int
		want  int
	}{
		{3, -4},
		{7, -2},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{13, 1},
		{14, 2},
		{18, 4},
		{20, 5},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, entity.Modifier(tc.score), "score %d", tc.score)
	}
}

func TestModifier_FloorsNegativeHalves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		score := rapid.IntRange(1, 30).Draw(t, "score")
		mod := entity.Modifier(score)
		// floor((score-10)/2) computed the slow way
		d := score - 10
		want := d / 2
		if d < 0 && d%2 != 0 {
			want--
		}
		require.Equal(t, want, mod)
	})
}

func testRecord() entity.PlayerRecord {
	return entity.PlayerRecord{
		ID:        "p1",
		Name:      "Aldric",
		Level:     3,
		XP:        450,
		CurrentHP: 20,
		MaxHP:     30,
		Attributes: map[string]int{
			"strength":  14,
			"dexterity": 12,
		},
		Wimpy:     25,
		RoomID:    "university_main_hall",
		Cooldowns: map[string]time.Time{},
	}
}

func TestPlayer_DamageFloorsAtZero(t *testing.T) {
	p := entity.NewPlayer(testRecord())

	require.Equal(t, 15, p.ApplyDamage(5, "rat-1"))
	require.Equal(t, "rat-1", p.LastAttacker())

	require.Equal(t, 0, p.ApplyDamage(100, "rat-2"))
	require.False(t, p.Alive())
	require.Equal(t, "rat-2", p.LastAttacker())
}

func TestPlayer_HealCapsAtMax(t *testing.T) {
	p := entity.NewPlayer(testRecord())
	require.Equal(t, 30, p.Heal(100))
}

func TestPlayer_SetWimpyRejectsOutOfRange(t *testing.T) {
	p := entity.NewPlayer(testRecord())

	require.True(t, p.SetWimpy(0))
	require.True(t, p.SetWimpy(99))
	require.False(t, p.SetWimpy(100))
	require.False(t, p.SetWimpy(-1))
	require.Equal(t, 99, p.Wimpy())
}

func TestPlayer_CooldownGating(t *testing.T) {
	p := entity.NewPlayer(testRecord())
	now := time.Now()

	_, cooling := p.OnCooldown("bash", now)
	require.False(t, cooling)

	p.SetCooldown("bash", now.Add(15*time.Second))

	remaining, cooling := p.OnCooldown("bash", now.Add(10*time.Second))
	require.True(t, cooling)
	require.Equal(t, 5*time.Second, remaining)

	_, cooling = p.OnCooldown("bash", now.Add(15*time.Second))
	require.False(t, cooling)
}

func TestPlayer_SnapshotRoundTrips(t *testing.T) {
	rec := testRecord()
	rec.Cooldowns["kick"] = time.Now().Add(time.Minute).Truncate(time.Second)

	p := entity.NewPlayer(rec)
	p.ApplyDamage(3, "rat-1")
	p.SetProgress(500, 3)
	p.Relocate("university_courtyard")

	snap := p.Snapshot()
	require.Equal(t, 17, snap.CurrentHP)
	require.Equal(t, 500, snap.XP)
	require.Equal(t, "university_courtyard", snap.RoomID)
	require.Equal(t, rec.Cooldowns["kick"], snap.Cooldowns["kick"])
}

func TestNPC_DelegatesToInstance(t *testing.T) {
	tmpl := &npc.Template{
		ID:       "dummy",
		Name:     "a training dummy",
		Level:    1,
		MaxHP:    100,
		Behavior: npc.BehaviorTrainingDummy,
		Attributes: map[string]int{
			"dexterity": 8,
		},
	}
	inst := npc.NewInstance("n1", tmpl, "gym")
	e := entity.WrapNPC(inst)

	require.Equal(t, entity.KindNPC, e.Kind())
	require.Equal(t, -1, entity.Mod(e, "dexterity"))

	e.ApplyDamage(10, "p1")
	cur, _ := inst.Health()
	require.Equal(t, 90, cur)
	require.Equal(t, "p1", e.LastAttacker())

	e.Relocate("hallway")
	require.Equal(t, "hallway", e.RoomID())
	// spawn room on the instance is untouched
	require.Equal(t, "gym", inst.RoomID)
}
