package entity

import (
	"sync"

	"github.com/waystone-mud/waystone/internal/game/npc"
)

// NPC adapts a live npc.Instance to the Entity interface. Health and the
// last-attacker record delegate to the instance; only the room is held here,
// because instances record their spawn room while combat can drag an NPC
// through doors.
type NPC struct {
	inst *npc.Instance

	mu     sync.Mutex
	roomID string
}

// WrapNPC adapts inst for combat.
func WrapNPC(inst *npc.Instance) *NPC {
	return &NPC{inst: inst, roomID: inst.RoomID}
}

// Instance returns the underlying NPC instance.
func (n *NPC) Instance() *npc.Instance { return n.inst }

// Behavior returns the instance's combat behavior classification.
func (n *NPC) Behavior() npc.Behavior { return n.inst.Behavior }

// ID implements Entity.
func (n *NPC) ID() string { return n.inst.ID }

// Name implements Entity.
func (n *NPC) Name() string { return n.inst.Name }

// Kind implements Entity.
func (n *NPC) Kind() Kind { return KindNPC }

// Level implements Entity.
func (n *NPC) Level() int { return n.inst.Level }

// Health implements Entity.
func (n *NPC) Health() (int, int) { return n.inst.Health() }

// ApplyDamage implements Entity.
func (n *NPC) ApplyDamage(amount int, attackerID string) int {
	return n.inst.ApplyDamage(amount, attackerID)
}

// Heal implements Entity.
func (n *NPC) Heal(amount int) int { return n.inst.Heal(amount) }

// Alive implements Entity.
func (n *NPC) Alive() bool { return n.inst.Alive() }

// Attribute implements Entity.
func (n *NPC) Attribute(name string) int { return n.inst.Attribute(name) }

// RoomID implements Entity.
func (n *NPC) RoomID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.roomID
}

// Relocate implements Entity.
func (n *NPC) Relocate(roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roomID = roomID
}

// LastAttacker returns the ID of the most recent entity to damage this NPC.
func (n *NPC) LastAttacker() string {
	who, _ := n.inst.LastHitBy()
	return who
}
