package combat

import (
	"fmt"
	"time"

	"github.com/waystone-mud/waystone/internal/game/entity"
)

// Command-layer entry points on a live instance. Each serializes against
// the round loop through the instance mutex, so a command lands either
// fully before or fully after a round, never inside one.

// Join registers attacker and target as participants and points the
// attacker at the target. Rejoining an encounter the attacker already fled
// is rejected.
//
// Postcondition: Returns ErrNotInCombat if the instance has already ended;
// the caller should create a fresh instance and retry.
func (inst *Instance) Join(attacker, target entity.Entity) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state == StateEnded {
		return ErrNotInCombat
	}
	if existing := inst.findLocked(attacker.ID()); existing != nil && existing.fled {
		return ErrAlreadyFled
	}
	if !target.Alive() {
		return ErrInvalidTarget
	}

	a := inst.addParticipantLocked(attacker)
	t := inst.addParticipantLocked(target)
	a.target = t
	return nil
}

// FleeEntity performs a manual flee attempt for the given entity.
//
// Postcondition: Returns (true, nil) on escape, (false, nil) on a failed
// roll, or a validation error with no state change.
func (inst *Instance) FleeEntity(entityID string, now time.Time) (bool, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	p := inst.findLocked(entityID)
	if p == nil || inst.state != StateActive {
		return false, ErrNotInCombat
	}
	if p.fled {
		return false, ErrAlreadyFled
	}
	if p.recovering(now) {
		return false, ErrRecovering
	}

	ok := inst.fleeLocked(p, now)
	if ok {
		inst.checkTerminationLocked()
	}
	return ok, nil
}

// UseSkill resolves one special action by the given entity. An empty
// targetKeyword targets the entity's current target.
//
// Lag and cooldown apply on failure as well: a failed attempt still costs
// the turn.
func (inst *Instance) UseSkill(entityID, skillName, targetKeyword string, now time.Time) error {
	sk, ok := Skills[skillName]
	if !ok {
		return ErrUnknownSkill
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	p := inst.findLocked(entityID)
	if p == nil || inst.state != StateActive {
		return ErrNotInCombat
	}
	if p.fled {
		return ErrAlreadyFled
	}
	if p.recovering(now) {
		return ErrRecovering
	}
	pl := p.player()
	if pl != nil {
		if _, cooling := pl.OnCooldown(sk.Name, now); cooling {
			return ErrOnCooldown
		}
	}

	target := p.target
	if targetKeyword != "" {
		target = inst.findByKeywordLocked(targetKeyword)
	}
	if target == nil || target == p || !target.active() {
		return ErrInvalidTarget
	}
	p.target = target

	// The attempt is committed: lag and cooldown bind regardless of outcome.
	// Lag is denominated in rounds so it always spans the next round(s)
	// whatever the configured period.
	p.addWait(now, time.Duration(sk.LagRounds)*inst.cfg.RoundPeriod)
	if pl != nil {
		pl.SetCooldown(sk.Name, now.Add(sk.Cooldown))
	}

	out := ResolveSkill(inst.deps.Roller.Source(), sk, p.Entity, target.Entity)
	uName, tName := p.Entity.Name(), target.Entity.Name()
	if !out.Success {
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s attempts to %s %s and fails!", uName, sk.Name, tName))
		return nil
	}

	switch out.Effect {
	case EffectKnockdown:
		target.addWait(now, time.Duration(sk.StunRounds)*inst.cfg.RoundPeriod)
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s bashes %s to the ground!", uName, tName))
	case EffectDisarm:
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s disarms %s, sending their weapon flying!", uName, tName))
	case EffectTrip:
		target.prone = true
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s trips %s, who crashes down!", uName, tName))
	case EffectNone:
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s lands a %s on %s!", uName, sk.Name, tName))
	}

	if out.Damage > 0 {
		newHP := target.Entity.ApplyDamage(out.Damage, p.Entity.ID())
		p.damageDealt[target.Entity.ID()] += out.Damage
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s %s %s for %d damage!", uName, DamageVerb(out.Damage), tName, out.Damage))
		if newHP == 0 {
			inst.settleDeathLocked(target, p, now)
			inst.checkTerminationLocked()
		} else if tpl := target.player(); tpl != nil {
			inst.persistPlayer(tpl)
		}
	}
	return nil
}

// SwitchTarget retargets the given entity onto the participant matching
// keyword.
func (inst *Instance) SwitchTarget(entityID, keyword string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	p := inst.findLocked(entityID)
	if p == nil || inst.state != StateActive {
		return ErrNotInCombat
	}
	if p.fled {
		return ErrAlreadyFled
	}
	target := inst.findByKeywordLocked(keyword)
	if target == nil || target == p {
		return ErrInvalidTarget
	}
	p.target = target
	inst.deps.World.Broadcast(inst.roomID,
		fmt.Sprintf("%s turns to face %s!", p.Entity.Name(), target.Entity.Name()))
	return nil
}

// Defend raises the entity's guard for the current round, trading its next
// attack for a defense bonus.
func (inst *Instance) Defend(entityID string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	p := inst.findLocked(entityID)
	if p == nil || inst.state != StateActive {
		return ErrNotInCombat
	}
	if p.fled {
		return ErrAlreadyFled
	}
	p.defending = true
	inst.deps.World.Broadcast(inst.roomID,
		fmt.Sprintf("%s takes a defensive stance.", p.Entity.Name()))
	return nil
}
