package combat

import (
	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/entity"
)

// Base defense before dexterity and stance adjustments.
const baseDefense = 10

// Stance adjustments to defense.
const (
	defendingBonus = 5
	pronePenalty   = 2
)

var (
	damageDie     = dice.MustParse("1d6")
	critDamageDie = dice.MustParse("2d6")
)

// AttackOutcome is the result of one resolved attack.
type AttackOutcome struct {
	// Natural is the raw d20 result before modifiers.
	Natural int
	// Total is the to-hit total: natural roll plus attacker dexterity mod.
	Total int
	Hit      bool
	Critical bool
	// Damage is the amount to apply; zero on a miss, at least 1 on a hit.
	Damage int
}

// RollInitiative computes an entity's initiative: d20 plus dexterity
// modifier.
func RollInitiative(src dice.Source, e entity.Entity) int {
	return dice.D20(src) + entity.Mod(e, "dexterity")
}

// ResolveAttack computes one attack of attacker against defender. Pure with
// respect to both entities: nothing is mutated, the caller applies damage.
//
// A natural 20 always hits and doubles the damage dice; a natural 1 always
// misses. Otherwise the attack hits iff total >= 10 + defender dexterity
// mod, +5 while the defender is defending, -2 while prone.
//
// Postcondition: on a hit, Damage >= 1.
func ResolveAttack(src dice.Source, attacker, defender entity.Entity, defending, prone bool) AttackOutcome {
	natural := dice.D20(src)
	out := AttackOutcome{
		Natural: natural,
		Total:   natural + entity.Mod(attacker, "dexterity"),
	}

	switch {
	case natural == 1:
		return out
	case natural == 20:
		out.Hit = true
		out.Critical = true
	default:
		defense := baseDefense + entity.Mod(defender, "dexterity")
		if defending {
			defense += defendingBonus
		}
		if prone {
			defense -= pronePenalty
		}
		out.Hit = out.Total >= defense
	}
	if !out.Hit {
		return out
	}

	die := damageDie
	if out.Critical {
		die = critDamageDie
	}
	out.Damage = dice.Roll(die, src).Total() + entity.Mod(attacker, "strength")
	if out.Damage < 1 {
		out.Damage = 1
	}
	return out
}

// RollFlee computes one flee attempt: d20 plus dexterity modifier against
// the configured difficulty.
func RollFlee(src dice.Source, e entity.Entity, dc int) (total int, ok bool) {
	total = dice.D20(src) + entity.Mod(e, "dexterity")
	return total, total >= dc
}

// DamageVerb maps a damage amount to the verb used in hit announcements.
// Heavier hits get louder verbs.
func DamageVerb(damage int) string {
	switch {
	case damage <= 2:
		return "scratches"
	case damage <= 4:
		return "hits"
	case damage <= 8:
		return "wounds"
	case damage <= 12:
		return "mauls"
	case damage <= 18:
		return "MASSACRES"
	default:
		return "ANNIHILATES"
	}
}
