// Package entity provides a uniform combatant surface over the two kinds of
// fighting entities: persistent player characters and spawned NPC instances.
// Combat code targets the Entity interface and never branches on storage.
package entity

// Kind classifies a combatant.
type Kind string

const (
	// KindPlayer is a persistent player character.
	KindPlayer Kind = "player"
	// KindNPC is a spawned non-player instance.
	KindNPC Kind = "npc"
)

// Entity is the combat-facing view of a combatant. Implementations must be
// safe for concurrent use: combat mutates health from the instance goroutine
// while status displays read from session goroutines.
type Entity interface {
	// ID uniquely identifies the entity across the server.
	ID() string
	// Name is the display name used in combat messages.
	Name() string
	// Kind reports whether this is a player or an NPC.
	Kind() Kind
	// Level is the entity's character level.
	Level() int
	// Health returns (current, max) hit points.
	Health() (int, int)
	// ApplyDamage reduces current HP by amount, flooring at zero, and
	// records attackerID as the most recent aggressor. Returns new HP.
	ApplyDamage(amount int, attackerID string) int
	// Heal raises current HP by amount, capped at max.
	Heal(amount int) int
	// Alive reports whether the entity has hit points remaining.
	Alive() bool
	// Attribute returns the named ability score, defaulting to 10.
	Attribute(name string) int
	// RoomID is the room the entity currently occupies.
	RoomID() string
	// Relocate moves the entity to roomID.
	Relocate(roomID string)
}

// Modifier converts an ability score to its bonus: floor((score-10)/2).
// Integer division in Go truncates toward zero, so negative spans need the
// rounding corrected by hand.
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		return -((-d + 1) / 2)
	}
	return d / 2
}

// Mod returns the entity's modifier for the named attribute.
func Mod(e Entity, attribute string) int {
	return Modifier(e.Attribute(attribute))
}
