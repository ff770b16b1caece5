package combat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/config"
	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/npc"
	"github.com/waystone-mud/waystone/internal/game/world"
	"github.com/waystone-mud/waystone/internal/scripting"
)

// State is the lifecycle state of a combat instance.
type State int

const (
	// StateSetup is the window between creation and Start.
	StateSetup State = iota
	// StateActive means the round scheduler is running.
	StateActive
	// StateEnded is terminal; an ended instance is discarded.
	StateEnded
)

// World is the location collaborator: room exits for flee movement and
// room-scoped broadcast for combat announcements.
type World interface {
	Exits(roomID string) []world.Exit
	Broadcast(roomID, text string)
}

// NPCRemover despawns dead NPC instances after settlement.
type NPCRemover interface {
	Remove(instanceID string) error
}

// CharacterSaver persists player state. Writes happen off the round loop so
// a slow database never stalls a round.
type CharacterSaver interface {
	Save(ctx context.Context, rec entity.PlayerRecord) error
	SetWimpy(ctx context.Context, id string, wimpy int) error
}

// HookRunner dispatches combat lifecycle events to zone scripts.
type HookRunner interface {
	OnCombatStart(roomID string, ev scripting.CombatEvent)
	OnDeath(roomID string, ev scripting.CombatEvent)
}

// Deps bundles the collaborators a combat instance needs. World, Roller,
// Mortician, and Logger are required; the rest may be nil and are skipped.
type Deps struct {
	World     World
	Roller    *dice.Roller
	Mortician Mortician
	NPCs      NPCRemover
	Saver     CharacterSaver
	Hooks     HookRunner
	Logger    *zap.Logger
}

// Instance is the state machine and scheduler for one encounter at one
// room. All roster state is guarded by mu; the round loop, command-layer
// calls, and shutdown all serialize through it.
type Instance struct {
	id     string
	roomID string
	cfg    config.CombatConfig
	deps   Deps
	onEnd  func(*Instance)

	mu           sync.Mutex
	state        State
	round        int
	participants []*Participant
	regSeq       int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewInstance creates an instance in Setup for the given room. onEnd fires
// exactly once when the instance ends; the directory uses it to unregister.
func NewInstance(roomID string, cfg config.CombatConfig, deps Deps, onEnd func(*Instance)) *Instance {
	return &Instance{
		id:     uuid.New().String(),
		roomID: roomID,
		cfg:    cfg,
		deps:   deps,
		onEnd:  onEnd,
		done:   make(chan struct{}),
	}
}

// ID returns the instance's unique ID.
func (inst *Instance) ID() string { return inst.id }

// RoomID returns the room this instance is bound to.
func (inst *Instance) RoomID() string { return inst.roomID }

// State returns the current lifecycle state.
func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

// Round returns the current round number.
func (inst *Instance) Round() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.round
}

// Participants returns a snapshot of the roster in initiative order.
func (inst *Instance) Participants() []*Participant {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return append([]*Participant(nil), inst.participants...)
}

// AddParticipant registers e with a freshly rolled initiative, keeping the
// roster sorted by initiative descending with ties in registration order.
// Re-adding a registered entity returns the existing participant.
//
// Postcondition: Returns nil if the instance has already ended.
func (inst *Instance) AddParticipant(e entity.Entity) *Participant {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state == StateEnded {
		return nil
	}
	return inst.addParticipantLocked(e)
}

func (inst *Instance) addParticipantLocked(e entity.Entity) *Participant {
	if p := inst.findLocked(e.ID()); p != nil {
		return p
	}

	p := newParticipant(e, RollInitiative(inst.deps.Roller.Source(), e), inst.regSeq)
	inst.regSeq++
	inst.participants = append(inst.participants, p)
	sort.Slice(inst.participants, func(i, j int) bool {
		a, b := inst.participants[i], inst.participants[j]
		if a.Initiative != b.Initiative {
			return a.Initiative > b.Initiative
		}
		return a.regOrder < b.regOrder
	})

	inst.deps.Logger.Debug("participant joined combat",
		zap.String("instance_id", inst.id),
		zap.String("entity_id", e.ID()),
		zap.String("entity_name", e.Name()),
		zap.Int("initiative", p.Initiative),
	)
	return p
}

// SetTarget points the attacker at the given defender.
func (inst *Instance) SetTarget(attackerID, defenderID string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	attacker := inst.findLocked(attackerID)
	if attacker == nil {
		return ErrNotInCombat
	}
	defender := inst.findLocked(defenderID)
	if defender == nil || !defender.active() {
		return ErrInvalidTarget
	}
	attacker.target = defender
	return nil
}

// Start rolls the encounter into motion: transitions Setup to Active and
// launches the round scheduler goroutine.
//
// Postcondition: No-op unless the instance was in Setup.
func (inst *Instance) Start() {
	inst.mu.Lock()
	if inst.state != StateSetup {
		inst.mu.Unlock()
		return
	}
	inst.state = StateActive
	ctx, cancel := context.WithCancel(context.Background())
	inst.cancel = cancel
	names := make([]string, len(inst.participants))
	for i, p := range inst.participants {
		names[i] = p.Entity.Name()
	}
	inst.mu.Unlock()

	inst.deps.World.Broadcast(inst.roomID, "Combat erupts!")
	inst.deps.World.Broadcast(inst.roomID, "Order of battle: "+strings.Join(names, ", "))
	if inst.deps.Hooks != nil {
		inst.deps.Hooks.OnCombatStart(inst.roomID, scripting.CombatEvent{RoomID: inst.roomID})
	}
	inst.deps.Logger.Info("combat started",
		zap.String("instance_id", inst.id),
		zap.String("room_id", inst.roomID),
		zap.Int("participants", len(names)),
	)

	go inst.run(ctx)
}

// End terminates the instance. Safe to call from any goroutine and
// idempotent: only the first call has any effect.
//
// Postcondition: Returns true if this call performed the transition.
func (inst *Instance) End(reason string) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.endLocked(reason)
}

// Wait blocks until the scheduler goroutine has exited. Returns immediately
// for an instance that ended before Start.
func (inst *Instance) Wait() {
	<-inst.done
}

// run is the round scheduler: execute a round, then sleep one period,
// until the instance ends or is cancelled. A panic that escapes the
// per-participant recovery (broadcast sinks, termination path) still forces
// the instance to Ended so nobody is left stuck in combat.
func (inst *Instance) run(ctx context.Context) {
	defer close(inst.done)
	defer func() {
		if r := recover(); r != nil {
			inst.deps.Logger.Error("combat scheduler failed",
				zap.String("instance_id", inst.id),
				zap.String("room_id", inst.roomID),
				zap.Any("panic", r),
			)
			inst.End("The fighting dies down.")
		}
	}()
	timer := time.NewTimer(inst.cfg.RoundPeriod)
	defer timer.Stop()

	for {
		if !inst.executeRound() {
			return
		}
		timer.Reset(inst.cfg.RoundPeriod)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// executeRound runs one full initiative pass. Returns false once the
// instance has ended.
func (inst *Instance) executeRound() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state != StateActive {
		return false
	}
	inst.round++
	now := time.Now()
	inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("--- Round %d ---", inst.round))

	order := append([]*Participant(nil), inst.participants...)
	for _, p := range order {
		if inst.state != StateActive {
			// A mid-round settlement or error may have ended the instance.
			return false
		}
		if !p.active() {
			continue
		}
		if p.recovering(now) {
			inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s is still recovering.", p.Entity.Name()))
			continue
		}
		inst.actLocked(p, now)
	}

	// Defensive stances protect through the round they were raised for.
	for _, p := range order {
		p.defending = false
	}

	return !inst.checkTerminationLocked()
}

// actLocked resolves one participant's round action. A panic while
// resolving is contained to this participant: logged and treated as a
// no-op so the rest of the round proceeds.
func (inst *Instance) actLocked(p *Participant, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			inst.deps.Logger.Error("participant action failed",
				zap.String("instance_id", inst.id),
				zap.String("entity_id", p.Entity.ID()),
				zap.Any("panic", r),
			)
		}
	}()

	// Prone lasts until the participant's next action.
	p.prone = false
	// A raised guard consumes this round's action.
	if p.defending {
		return
	}

	if p.player() != nil {
		inst.playerActionLocked(p, now)
		return
	}
	inst.npcActionLocked(p, now)
}

// playerActionLocked runs the player auto-action: wimpy first, then attack
// the current target, auto-acquiring one if needed.
func (inst *Instance) playerActionLocked(p *Participant, now time.Time) {
	if inst.wimpyTriggeredLocked(p) {
		inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s panics!", p.Entity.Name()))
		inst.fleeLocked(p, now)
		return
	}

	if p.target == nil || !p.target.active() {
		p.target = inst.firstOpponentLocked(p)
	}
	if p.target == nil {
		return
	}
	inst.attackLocked(p, p.target, now)
}

// npcActionLocked asks the behavior selector for this round's NPC action.
func (inst *Instance) npcActionLocked(p *Participant, now time.Time) {
	action, target := chooseNPCAction(
		inst.deps.Roller.Source(), p, inst.opponentsLocked(p), inst.cfg.NPCFleeThreshold,
	)
	switch action {
	case npcActionAttack:
		p.target = target
		inst.attackLocked(p, target, now)
	case npcActionFlee:
		inst.fleeLocked(p, now)
	case npcActionNone:
	}
}

// attackLocked resolves and applies one attack, announces it, and follows
// up with settlement or the defender's wimpy check.
func (inst *Instance) attackLocked(attacker, defender *Participant, now time.Time) {
	out := ResolveAttack(
		inst.deps.Roller.Source(),
		attacker.Entity, defender.Entity,
		defender.defending, defender.prone,
	)

	aName, dName := attacker.Entity.Name(), defender.Entity.Name()
	if !out.Hit {
		inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s swings at %s and misses.", aName, dName))
		return
	}

	msg := fmt.Sprintf("%s %s %s for %d damage!", aName, DamageVerb(out.Damage), dName, out.Damage)
	if out.Critical {
		msg = "CRITICAL! " + msg
	}
	inst.deps.World.Broadcast(inst.roomID, msg)

	newHP := defender.Entity.ApplyDamage(out.Damage, attacker.Entity.ID())
	attacker.damageDealt[defender.Entity.ID()] += out.Damage

	if newHP == 0 {
		inst.settleDeathLocked(defender, attacker, now)
		return
	}
	if n := defender.npc(); n != nil {
		inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s looks %s.", dName, n.Instance().HealthDescription()))
	}
	if pl := defender.player(); pl != nil {
		inst.persistPlayer(pl)
		if inst.wimpyTriggeredLocked(defender) {
			inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s panics!", dName))
			inst.fleeLocked(defender, now)
		}
	}
}

// wimpyTriggeredLocked reports whether the player participant's health
// fraction has dropped below its persisted wimpy threshold.
func (inst *Instance) wimpyTriggeredLocked(p *Participant) bool {
	pl := p.player()
	if pl == nil || p.fled {
		return false
	}
	wimpy := pl.Wimpy()
	if wimpy <= 0 {
		return false
	}
	cur, max := pl.Health()
	if max <= 0 {
		return false
	}
	return float64(cur)/float64(max)*100 < float64(wimpy)
}

// fleeLocked performs one flee attempt with identical mechanics for manual,
// wimpy, and NPC flees. On success the participant leaves active targeting
// and players move through a random open exit. On failure the attempt costs
// a short wait-state.
func (inst *Instance) fleeLocked(p *Participant, now time.Time) bool {
	name := p.Entity.Name()
	_, ok := RollFlee(inst.deps.Roller.Source(), p.Entity, inst.cfg.FleeDC)
	if !ok {
		inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s tries to flee but cannot escape!", name))
		p.addWait(now, inst.cfg.FailedFleeLag)
		return false
	}

	p.fled = true
	p.target = nil
	for _, other := range inst.participants {
		if other.target == p {
			other.target = nil
		}
	}

	if p.player() != nil {
		if exits := inst.deps.World.Exits(inst.roomID); len(exits) > 0 {
			exit := exits[inst.deps.Roller.Source().Intn(len(exits))]
			p.Entity.Relocate(exit.Target)
			p.addWait(now, inst.cfg.MovementLag)
			inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s flees %s!", name, exit.Direction))
			return true
		}
	}
	inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s flees from combat!", name))
	return true
}

// firstOpponentLocked returns the first active participant on the other
// side, in initiative order.
func (inst *Instance) firstOpponentLocked(p *Participant) *Participant {
	isPlayer := p.player() != nil
	for _, other := range inst.participants {
		if other == p || !other.active() {
			continue
		}
		if (other.player() != nil) != isPlayer {
			return other
		}
	}
	return nil
}

// opponentsLocked returns all active player participants opposing the NPC p.
func (inst *Instance) opponentsLocked(p *Participant) []*Participant {
	var out []*Participant
	for _, other := range inst.participants {
		if other != p && other.active() && other.player() != nil {
			out = append(out, other)
		}
	}
	return out
}

// findLocked returns the participant for the given entity ID, or nil.
func (inst *Instance) findLocked(entityID string) *Participant {
	for _, p := range inst.participants {
		if p.Entity.ID() == entityID {
			return p
		}
	}
	return nil
}

// findByKeywordLocked resolves a target keyword against the roster: NPC
// keywords first, then case-insensitive name match for players.
func (inst *Instance) findByKeywordLocked(keyword string) *Participant {
	for _, p := range inst.participants {
		if !p.active() {
			continue
		}
		if n := p.npc(); n != nil && n.Instance().MatchesKeyword(keyword) {
			return p
		}
	}
	for _, p := range inst.participants {
		if !p.active() {
			continue
		}
		if pl := p.player(); pl != nil && strings.EqualFold(pl.Name(), keyword) {
			return p
		}
	}
	return nil
}

// checkTerminationLocked ends the instance when fewer than two active
// participants remain or either side is empty.
func (inst *Instance) checkTerminationLocked() bool {
	if inst.state != StateActive {
		return true
	}
	var players, npcs int
	for _, p := range inst.participants {
		if !p.active() {
			continue
		}
		if p.player() != nil {
			players++
		} else {
			npcs++
		}
	}
	if players+npcs < 2 || players == 0 || npcs == 0 {
		return inst.endLocked("The fighting dies down.")
	}
	return false
}

// endLocked performs the single Ended transition: announce, cancel the
// scheduler, queue player persistence, and fire the directory callback.
//
// Precondition: inst.mu is held.
func (inst *Instance) endLocked(reason string) bool {
	if inst.state == StateEnded {
		return false
	}
	wasSetup := inst.state == StateSetup
	inst.state = StateEnded

	inst.deps.World.Broadcast(inst.roomID, reason)
	inst.deps.Logger.Info("combat ended",
		zap.String("instance_id", inst.id),
		zap.String("room_id", inst.roomID),
		zap.Int("rounds", inst.round),
	)

	if inst.cancel != nil {
		inst.cancel()
	}
	if wasSetup {
		// No scheduler was ever launched; unblock Wait ourselves.
		close(inst.done)
	}

	for _, p := range inst.participants {
		if pl := p.player(); pl != nil {
			inst.persistPlayer(pl)
		}
	}
	if inst.onEnd != nil {
		inst.onEnd(inst)
	}
	return true
}

// persistPlayer writes the player's state through the saver off the round
// loop.
func (inst *Instance) persistPlayer(pl *entity.Player) {
	if inst.deps.Saver == nil {
		return
	}
	snap := pl.Snapshot()
	logger := inst.deps.Logger
	saver := inst.deps.Saver
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := saver.Save(ctx, snap); err != nil {
			logger.Error("persisting player after combat",
				zap.String("player_id", snap.ID),
				zap.Error(err),
			)
		}
	}()
}

// lootFor generates the dead NPC's loot, if it has a loot table.
func (inst *Instance) lootFor(n *entity.NPC) npc.LootResult {
	tableRef := n.Instance().Loot
	if tableRef == nil {
		return npc.LootResult{}
	}
	return npc.GenerateLoot(*tableRef, inst.deps.Roller.Source())
}
