package entity

import (
	"sync"
	"time"
)

// MaxWimpy is the upper bound of the auto-flee threshold. A wimpy of 0
// disables auto-flee entirely.
const MaxWimpy = 99

// PlayerRecord is the persisted shape of a player character. The storage
// layer produces and consumes records; the live Player holds the runtime
// copy.
type PlayerRecord struct {
	ID         string
	Name       string
	Level      int
	XP         int
	CurrentHP  int
	MaxHP      int
	Attributes map[string]int
	Wimpy      int
	RoomID     string
	// Cooldowns maps skill name to the time the skill is next usable.
	Cooldowns map[string]time.Time
}

// Player is a live player character participating in the game. All mutable
// state is guarded by mu.
type Player struct {
	id   string
	name string

	mu         sync.Mutex
	level      int
	xp         int
	currentHP  int
	maxHP      int
	attributes map[string]int
	wimpy      int
	roomID     string
	cooldowns  map[string]time.Time
	lastHitBy  string

	weakenedUntil time.Time
}

// NewPlayer builds a live Player from a persisted record.
//
// Precondition: rec.ID and rec.Name must be non-empty; rec.MaxHP > 0.
func NewPlayer(rec PlayerRecord) *Player {
	attrs := make(map[string]int, len(rec.Attributes))
	for k, v := range rec.Attributes {
		attrs[k] = v
	}
	cds := make(map[string]time.Time, len(rec.Cooldowns))
	for k, v := range rec.Cooldowns {
		cds[k] = v
	}
	wimpy := rec.Wimpy
	if wimpy < 0 {
		wimpy = 0
	}
	if wimpy > MaxWimpy {
		wimpy = MaxWimpy
	}
	return &Player{
		id:         rec.ID,
		name:       rec.Name,
		level:      rec.Level,
		xp:         rec.XP,
		currentHP:  rec.CurrentHP,
		maxHP:      rec.MaxHP,
		attributes: attrs,
		wimpy:      wimpy,
		roomID:     rec.RoomID,
		cooldowns:  cds,
	}
}

// ID implements Entity.
func (p *Player) ID() string { return p.id }

// Name implements Entity.
func (p *Player) Name() string { return p.name }

// Kind implements Entity.
func (p *Player) Kind() Kind { return KindPlayer }

// Level implements Entity.
func (p *Player) Level() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Health implements Entity.
func (p *Player) Health() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentHP, p.maxHP
}

// ApplyDamage implements Entity.
//
// Postcondition: current HP >= 0.
func (p *Player) ApplyDamage(amount int, attackerID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentHP -= amount
	if p.currentHP < 0 {
		p.currentHP = 0
	}
	if attackerID != "" {
		p.lastHitBy = attackerID
	}
	return p.currentHP
}

// Heal implements Entity.
func (p *Player) Heal(amount int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentHP += amount
	if p.currentHP > p.maxHP {
		p.currentHP = p.maxHP
	}
	return p.currentHP
}

// SetHealth forces current HP to hp, clamped to [0, max]. Used by respawn.
func (p *Player) SetHealth(hp int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hp < 0 {
		hp = 0
	}
	if hp > p.maxHP {
		hp = p.maxHP
	}
	p.currentHP = hp
}

// Alive implements Entity.
func (p *Player) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentHP > 0
}

// Attribute implements Entity.
func (p *Player) Attribute(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.attributes[name]; ok {
		return v
	}
	return 10
}

// RoomID implements Entity.
func (p *Player) RoomID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomID
}

// Relocate implements Entity.
func (p *Player) Relocate(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roomID = roomID
}

// Wimpy returns the auto-flee threshold as a percentage of max HP.
func (p *Player) Wimpy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wimpy
}

// SetWimpy updates the auto-flee threshold.
//
// Precondition: value must be in [0, MaxWimpy]; out-of-range values are
// rejected, not clamped, so the caller can report the bad input.
func (p *Player) SetWimpy(value int) bool {
	if value < 0 || value > MaxWimpy {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wimpy = value
	return true
}

// XP returns the player's total experience points.
func (p *Player) XP() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.xp
}

// SetProgress replaces the player's XP total and level together so the two
// never disagree across a level-up or a death penalty.
func (p *Player) SetProgress(xp, level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.xp = xp
	p.level = level
}

// CooldownUntil returns the time the named skill becomes usable again.
// The zero time means the skill has never been used.
func (p *Player) CooldownUntil(skill string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cooldowns[skill]
}

// SetCooldown marks the named skill unusable until readyAt.
func (p *Player) SetCooldown(skill string, readyAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldowns[skill] = readyAt
}

// OnCooldown reports whether the named skill is still cooling down at now,
// and if so how long remains.
func (p *Player) OnCooldown(skill string, now time.Time) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready, ok := p.cooldowns[skill]
	if !ok || !now.Before(ready) {
		return 0, false
	}
	return ready.Sub(now), true
}

// SetWeakened marks the player weakened until the given time. Respawn
// applies this so a freshly dead player cannot chain straight back into
// a fight at full effectiveness.
func (p *Player) SetWeakened(until time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weakenedUntil = until
}

// Weakened reports whether the player is still under the post-death
// weakness at now.
func (p *Player) Weakened(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return now.Before(p.weakenedUntil)
}

// LastAttacker returns the ID of the most recent entity to damage this
// player. Empty string means never hit.
func (p *Player) LastAttacker() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHitBy
}

// Snapshot captures the player's persistable state for the storage layer.
func (p *Player) Snapshot() PlayerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	attrs := make(map[string]int, len(p.attributes))
	for k, v := range p.attributes {
		attrs[k] = v
	}
	cds := make(map[string]time.Time, len(p.cooldowns))
	for k, v := range p.cooldowns {
		cds[k] = v
	}
	return PlayerRecord{
		ID:         p.id,
		Name:       p.name,
		Level:      p.level,
		XP:         p.xp,
		CurrentHP:  p.currentHP,
		MaxHP:      p.maxHP,
		Attributes: attrs,
		Wimpy:      p.wimpy,
		RoomID:     p.roomID,
		Cooldowns:  cds,
	}
}
