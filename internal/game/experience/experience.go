// Package experience implements the character advancement curve and the
// experience adjustments applied on kills and deaths.
package experience

// MaxLevel caps advancement; experience keeps accumulating past it but the
// level does not.
const MaxLevel = 50

// ThresholdFor returns the total experience required to hold the given
// level. Level 1 requires zero. The curve is quadratic: each level's span is
// 100 points wider than the one before it.
func ThresholdFor(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	// sum of 100*k for k in [1, level-1]
	return 50 * (level - 1) * level
}

// SpanFor returns the width of the given level: the experience between
// entering it and entering the next.
func SpanFor(level int) int {
	return ThresholdFor(level+1) - ThresholdFor(level)
}

// LevelForXP returns the level a character with the given total holds.
//
// Postcondition: result is in [1, MaxLevel].
func LevelForXP(xp int) int {
	level := 1
	for level < MaxLevel && xp >= ThresholdFor(level+1) {
		level++
	}
	return level
}

// Award adds amount to the given total and reports the resulting total,
// level, and whether the character gained at least one level.
//
// Precondition: amount >= 0.
func Award(xp, level, amount int) (newXP, newLevel int, leveled bool) {
	newXP = xp + amount
	newLevel = LevelForXP(newXP)
	if newLevel < level {
		// Totals below the held level can happen after a death penalty
		// miscount in old saves. Never delevel on a gain.
		newLevel = level
	}
	return newXP, newLevel, newLevel > level
}

// DeathPenalty deducts one tenth of the current level's span from the total.
// The result never drops below the threshold of the held level, so a death
// cannot cost a level.
func DeathPenalty(xp, level int) int {
	penalty := SpanFor(level) / 10
	floor := ThresholdFor(level)
	xp -= penalty
	if xp < floor {
		xp = floor
	}
	return xp
}
