package experience_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/waystone-mud/waystone/internal/game/experience"
)

func TestThresholdFor(t *testing.T) {
	require.Equal(t, 0, experience.ThresholdFor(1))
	require.Equal(t, 100, experience.ThresholdFor(2))
	require.Equal(t, 300, experience.ThresholdFor(3))
	require.Equal(t, 600, experience.ThresholdFor(4))
}

func TestLevelForXP(t *testing.T) {
	require.Equal(t, 1, experience.LevelForXP(0))
	require.Equal(t, 1, experience.LevelForXP(99))
	require.Equal(t, 2, experience.LevelForXP(100))
	require.Equal(t, 2, experience.LevelForXP(299))
	require.Equal(t, 3, experience.LevelForXP(300))
}

func TestAward_DetectsLevelUp(t *testing.T) {
	xp, level, leveled := experience.Award(90, 1, 20)
	require.Equal(t, 110, xp)
	require.Equal(t, 2, level)
	require.True(t, leveled)

	xp, level, leveled = experience.Award(110, 2, 5)
	require.Equal(t, 115, xp)
	require.Equal(t, 2, level)
	require.False(t, leveled)
}

func TestDeathPenalty_NeverDelevels(t *testing.T) {
	// Level 2 spans [100, 300), penalty is 20.
	require.Equal(t, 230, experience.DeathPenalty(250, 2))
	// Already at the floor: no change.
	require.Equal(t, 100, experience.DeathPenalty(100, 2))
	// Near the floor: clamped, not pushed below.
	require.Equal(t, 100, experience.DeathPenalty(105, 2))
}

func TestCurveProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.IntRange(0, 500_000).Draw(t, "xp")
		level := experience.LevelForXP(xp)
		require.GreaterOrEqual(t, xp, experience.ThresholdFor(level))
		if level < experience.MaxLevel {
			require.Less(t, xp, experience.ThresholdFor(level+1))
		}

		after := experience.DeathPenalty(xp, level)
		require.LessOrEqual(t, after, xp)
		require.Equal(t, level, experience.LevelForXP(after))
	})
}
