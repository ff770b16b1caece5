package npc

import (
	"sync"
	"time"
)

// Instance is a live NPC entity occupying a room.
//
// Health and the last-attacker record are guarded by mu: combat mutates them
// from the owning instance goroutine while status displays read concurrently.
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's ID.
	TemplateID string
	// Name is copied from the template for display.
	Name string
	// Keywords are copied from the template for targeting.
	Keywords []string
	// RoomID is the room this instance currently occupies.
	RoomID string
	// MaxHP is the instance's maximum hit points.
	MaxHP int
	// Level is copied from the template.
	Level int
	// Behavior is the combat behavior classification.
	Behavior Behavior
	// Attributes holds ability scores copied from the template.
	Attributes map[string]int
	// Loot is the loot table copied from the template; nil means no loot.
	Loot *LootTable

	mu        sync.Mutex
	currentHP int
	alive     bool
	// lastHitBy is the most recent damaging attacker. Writes are serialized
	// by the owning combat instance goroutine; most recent write wins.
	lastHitBy   string
	lastHitTime time.Time
}

// NewInstance creates a live NPC instance from a template, placed in roomID.
//
// Precondition: id and roomID must be non-empty; tmpl must be non-nil and
// validated.
// Postcondition: the instance is alive with CurrentHP == tmpl.MaxHP.
func NewInstance(id string, tmpl *Template, roomID string) *Instance {
	attrs := make(map[string]int, len(tmpl.Attributes))
	for k, v := range tmpl.Attributes {
		attrs[k] = v
	}
	return &Instance{
		ID:         id,
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		Keywords:   append([]string(nil), tmpl.Keywords...),
		RoomID:     roomID,
		MaxHP:      tmpl.MaxHP,
		Level:      tmpl.Level,
		Behavior:   tmpl.Behavior,
		Attributes: attrs,
		Loot:       tmpl.Loot,
		currentHP:  tmpl.MaxHP,
		alive:      true,
	}
}

// Health returns (current, max) hit points.
func (i *Instance) Health() (int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.currentHP, i.MaxHP
}

// ApplyDamage reduces current HP by amount, flooring at zero, and records
// the attacker as the most recent aggressor. Returns the new current HP.
//
// Precondition: amount >= 0.
// Postcondition: current HP >= 0; the instance is marked dead at 0.
func (i *Instance) ApplyDamage(amount int, attackerID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.currentHP -= amount
	if i.currentHP <= 0 {
		i.currentHP = 0
		i.alive = false
	}
	if attackerID != "" {
		i.lastHitBy = attackerID
		i.lastHitTime = time.Now()
	}
	return i.currentHP
}

// Heal raises current HP by amount, capped at MaxHP. Dead instances stay dead.
func (i *Instance) Heal(amount int) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.alive {
		return i.currentHP
	}
	i.currentHP += amount
	if i.currentHP > i.MaxHP {
		i.currentHP = i.MaxHP
	}
	return i.currentHP
}

// Alive reports whether the instance has hit points remaining.
func (i *Instance) Alive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.alive
}

// LastHitBy returns the most recent damaging attacker's entity ID and when
// the hit landed. Empty string means the instance has never been hit.
func (i *Instance) LastHitBy() (string, time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastHitBy, i.lastHitTime
}

// Attribute returns the named ability score, defaulting to 10 when the
// template does not define it.
func (i *Instance) Attribute(name string) int {
	if v, ok := i.Attributes[name]; ok {
		return v
	}
	return 10
}

// MatchesKeyword reports whether keyword targets this instance, by exact
// keyword or partial name match.
func (i *Instance) MatchesKeyword(keyword string) bool {
	kw := normalizeKeyword(keyword)
	for _, k := range i.Keywords {
		if normalizeKeyword(k) == kw {
			return true
		}
	}
	return kw != "" && containsFold(i.Name, kw)
}

// HealthDescription returns a visible health state string for examine output.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	cur, max := i.Health()
	if cur <= 0 {
		return "dead"
	}
	pct := float64(cur) / float64(max)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
