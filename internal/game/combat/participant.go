package combat

import (
	"time"

	"github.com/waystone-mud/waystone/internal/game/entity"
)

// Participant binds one entity to an ongoing combat instance. It is created
// when the entity joins the encounter and discarded when the instance ends;
// it is never shared across instances.
//
// All fields below the entity reference are guarded by the owning
// instance's mutex.
type Participant struct {
	// Entity is the combatant behind this participant.
	Entity entity.Entity

	// Initiative is rolled once on registration and never changes.
	Initiative int
	// regOrder breaks initiative ties: earlier registration acts first.
	regOrder int

	target    *Participant
	waitUntil time.Time
	// defending raises the participant's defense for the current round.
	defending bool
	// prone lowers the participant's defense until its next action.
	prone   bool
	fled    bool
	removed bool

	// damageDealt accumulates damage per victim entity ID for settlement.
	damageDealt map[string]int
}

func newParticipant(e entity.Entity, initiative, regOrder int) *Participant {
	return &Participant{
		Entity:      e,
		Initiative:  initiative,
		regOrder:    regOrder,
		damageDealt: make(map[string]int),
	}
}

// active reports whether the participant can still take part in the
// encounter: alive, not fled, not removed.
func (p *Participant) active() bool {
	return !p.fled && !p.removed && p.Entity.Alive()
}

// recovering reports whether the participant is inside a wait-state at now.
func (p *Participant) recovering(now time.Time) bool {
	return now.Before(p.waitUntil)
}

// addWait extends the participant's wait-state. A shorter new wait never
// shortens an existing one.
func (p *Participant) addWait(now time.Time, d time.Duration) {
	until := now.Add(d)
	if until.After(p.waitUntil) {
		p.waitUntil = until
	}
}

// player returns the underlying Player, or nil for NPC participants.
func (p *Participant) player() *entity.Player {
	pl, _ := p.Entity.(*entity.Player)
	return pl
}

// npc returns the underlying NPC wrapper, or nil for player participants.
func (p *Participant) npc() *entity.NPC {
	n, _ := p.Entity.(*entity.NPC)
	return n
}

// Fled reports whether the participant has fled the encounter. Safe to call
// only while the owning instance is quiescent (before Start or after Wait).
func (p *Participant) Fled() bool { return p.fled }

// DamageDealtTo returns the cumulative damage this participant dealt to the
// given victim. Same access rule as Fled.
func (p *Participant) DamageDealtTo(victimID string) int {
	return p.damageDealt[victimID]
}
