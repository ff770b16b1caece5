package combat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/config"
	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

// TargetFinder resolves an attack keyword to a live NPC in a room.
type TargetFinder interface {
	FindInRoom(roomID, keyword string) *npc.Instance
}

// Engine is the command-layer facade over the combat system: it owns the
// encounter directory and translates player commands into instance
// operations.
type Engine struct {
	cfg    config.CombatConfig
	dir    *Directory
	finder TargetFinder
	deps   Deps
	logger *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: finder must be non-nil; deps must carry World, Roller,
// Mortician, and Logger.
func NewEngine(cfg config.CombatConfig, finder TargetFinder, deps Deps) *Engine {
	return &Engine{
		cfg:    cfg,
		dir:    NewDirectory(deps.Logger),
		finder: finder,
		deps:   deps,
		logger: deps.Logger,
	}
}

// Directory exposes the encounter directory, mainly for status displays.
func (e *Engine) Directory() *Directory { return e.dir }

// Engage starts or joins combat: the player attacks the NPC matching
// targetKeyword in their current room. If the room already hosts an
// encounter the player joins it, otherwise a new instance starts.
func (e *Engine) Engage(pl *entity.Player, targetKeyword string) error {
	roomID := pl.RoomID()
	npcInst := e.finder.FindInRoom(roomID, targetKeyword)
	if npcInst == nil {
		return ErrTargetNotFound
	}

	// The instance can end between lookup and join; one retry creates a
	// fresh instance for the room.
	for attempt := 0; attempt < 2; attempt++ {
		inst, created := e.dir.GetOrCreate(roomID, func() *Instance {
			return NewInstance(roomID, e.cfg, e.deps, e.dir.Remove)
		})

		err := inst.Join(pl, entity.WrapNPC(npcInst))
		if errors.Is(err, ErrNotInCombat) {
			continue
		}
		if err != nil {
			return err
		}

		e.dir.Register(pl.ID(), inst)
		e.dir.Register(npcInst.ID, inst)
		if created {
			inst.Start()
		}
		return nil
	}
	return ErrNotInCombat
}

// Flee attempts a manual escape from the player's current encounter.
func (e *Engine) Flee(pl *entity.Player) (bool, error) {
	inst, ok := e.dir.FindByEntity(pl.ID())
	if !ok {
		return false, ErrNotInCombat
	}
	return inst.FleeEntity(pl.ID(), time.Now())
}

// SetWimpy updates and persists the player's auto-flee threshold. Valid
// whether or not the player is in combat.
func (e *Engine) SetWimpy(ctx context.Context, pl *entity.Player, percent int) error {
	if !pl.SetWimpy(percent) {
		return ErrInvalidWimpy
	}
	if e.deps.Saver != nil {
		if err := e.deps.Saver.SetWimpy(ctx, pl.ID(), percent); err != nil {
			e.logger.Error("persisting wimpy",
				zap.String("player_id", pl.ID()),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// UseSkill invokes a special action in the player's current encounter.
func (e *Engine) UseSkill(pl *entity.Player, skillName, targetKeyword string) error {
	inst, ok := e.dir.FindByEntity(pl.ID())
	if !ok {
		return ErrNotInCombat
	}
	return inst.UseSkill(pl.ID(), skillName, targetKeyword, time.Now())
}

// SwitchTarget retargets the player within their current encounter.
func (e *Engine) SwitchTarget(pl *entity.Player, targetKeyword string) error {
	inst, ok := e.dir.FindByEntity(pl.ID())
	if !ok {
		return ErrNotInCombat
	}
	return inst.SwitchTarget(pl.ID(), targetKeyword)
}

// Defend raises the player's guard for the coming round.
func (e *Engine) Defend(pl *entity.Player) error {
	inst, ok := e.dir.FindByEntity(pl.ID())
	if !ok {
		return ErrNotInCombat
	}
	return inst.Defend(pl.ID())
}

// Shutdown ends every active encounter and waits for their schedulers to
// exit.
func (e *Engine) Shutdown() {
	e.dir.Shutdown()
}
