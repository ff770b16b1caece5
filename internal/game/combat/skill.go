package combat

import (
	"time"

	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/entity"
)

// SkillEffect is the status effect a skill applies on success.
type SkillEffect int

const (
	// EffectNone applies no status effect.
	EffectNone SkillEffect = iota
	// EffectKnockdown stuns the target into a short wait-state.
	EffectKnockdown
	// EffectDisarm knocks the target's weapon away.
	EffectDisarm
	// EffectTrip knocks the target prone until its next action.
	EffectTrip
)

// Skill describes one special combat action. The to-hit roll is d20 plus
// the user's modifier for Attribute. Bash and kick resolve against DCBase
// plus the target's dexterity modifier; disarm and trip set FullDexterityDC
// and resolve against DCBase plus the target's raw dexterity score, which
// makes them much harder against nimble targets. LagRounds is the
// wait-state applied to the user on every attempt, in round periods;
// Cooldown gates reuse. Both apply on failure too.
type Skill struct {
	Name      string
	Attribute string
	DCBase    int
	// FullDexterityDC adds the target's full dexterity score to DCBase
	// instead of its modifier.
	FullDexterityDC bool
	// Damage is the dice expression rolled on success; zero value means the
	// skill deals no damage.
	Damage dice.Expression
	// DamageAttribute's modifier is added to the damage roll.
	DamageAttribute string
	// LagRounds is the user wait-state, in round periods.
	LagRounds int
	Cooldown  time.Duration
	Effect    SkillEffect
	// StunRounds is the target wait-state for EffectKnockdown, in round
	// periods. One round means the target loses its next action.
	StunRounds int
}

// Skills is the fixed skill table, keyed by command name.
var Skills = map[string]Skill{
	"bash": {
		Name:            "bash",
		Attribute:       "strength",
		DCBase:          10,
		Damage:          dice.MustParse("1d4"),
		DamageAttribute: "strength",
		LagRounds:       2,
		Cooldown:        15 * time.Second,
		Effect:          EffectKnockdown,
		StunRounds:      1,
	},
	"kick": {
		Name:            "kick",
		Attribute:       "dexterity",
		DCBase:          10,
		Damage:          dice.MustParse("1d6"),
		DamageAttribute: "dexterity",
		LagRounds:       1,
		Cooldown:        10 * time.Second,
		Effect:          EffectNone,
	},
	"disarm": {
		Name:            "disarm",
		Attribute:       "dexterity",
		DCBase:          10,
		FullDexterityDC: true,
		LagRounds:       2,
		Cooldown:        30 * time.Second,
		Effect:          EffectDisarm,
	},
	"trip": {
		Name:            "trip",
		Attribute:       "dexterity",
		DCBase:          8,
		FullDexterityDC: true,
		LagRounds:       1,
		Cooldown:        12 * time.Second,
		Effect:          EffectTrip,
	},
}

// SkillOutcome is the result of one resolved skill attempt.
type SkillOutcome struct {
	Natural int
	Total   int
	Success bool
	// Damage to apply on success; zero for no-damage skills.
	Damage int
	Effect SkillEffect
}

// ResolveSkill computes one use of sk by user against target. Pure; the
// caller applies damage, effects, lag, and cooldown.
//
// Postcondition: on success with a damage skill, Damage >= 1.
func ResolveSkill(src dice.Source, sk Skill, user, target entity.Entity) SkillOutcome {
	natural := dice.D20(src)
	out := SkillOutcome{
		Natural: natural,
		Total:   natural + entity.Mod(user, sk.Attribute),
		Effect:  sk.Effect,
	}

	dc := sk.DCBase + entity.Mod(target, "dexterity")
	if sk.FullDexterityDC {
		dc = sk.DCBase + target.Attribute("dexterity")
	}
	out.Success = out.Total >= dc
	if !out.Success {
		return out
	}

	if sk.Damage.Sides > 0 {
		out.Damage = dice.Roll(sk.Damage, src).Total() + entity.Mod(user, sk.DamageAttribute)
		if out.Damage < 1 {
			out.Damage = 1
		}
	}
	return out
}
