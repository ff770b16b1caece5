package combat

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/death"
	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/experience"
	"github.com/waystone-mud/waystone/internal/game/npc"
	"github.com/waystone-mud/waystone/internal/scripting"
)

// Mortician is the death collaborator: corpse placement plus, for players,
// the experience penalty and respawn.
type Mortician interface {
	HandleNPCDeath(n *entity.NPC, loot npc.LootResult, now time.Time) *death.Corpse
	HandlePlayerDeath(p *entity.Player, now time.Time) *death.Corpse
}

// settleDeathLocked resolves a participant dropping to zero health: reward
// distribution and despawn for NPCs, penalty and respawn for players. The
// victim is removed from the roster either way.
//
// Precondition: inst.mu is held; victim's health is 0.
func (inst *Instance) settleDeathLocked(victim, killer *Participant, now time.Time) {
	inst.deps.World.Broadcast(inst.roomID, fmt.Sprintf("%s is DEAD!", victim.Entity.Name()))
	victim.removed = true
	for _, other := range inst.participants {
		if other.target == victim {
			other.target = nil
		}
	}

	if n := victim.npc(); n != nil {
		inst.settleNPCDeathLocked(victim, n, now)
	} else if pl := victim.player(); pl != nil {
		inst.settlePlayerDeathLocked(pl, now)
	}

	if inst.deps.Hooks != nil {
		inst.deps.Hooks.OnDeath(inst.roomID, scripting.CombatEvent{
			RoomID:     inst.roomID,
			EntityID:   victim.Entity.ID(),
			EntityName: victim.Entity.Name(),
			EntityKind: string(victim.Entity.Kind()),
			KillerID:   killer.Entity.ID(),
			KillerName: killer.Entity.Name(),
		})
	}
}

// settleNPCDeathLocked splits experience among the players who damaged the
// victim, proportional to each one's share of the total, then hands the
// corpse and loot off and despawns the instance.
func (inst *Instance) settleNPCDeathLocked(victim *Participant, n *entity.NPC, now time.Time) {
	victimID := victim.Entity.ID()
	baseXP := inst.cfg.BaseXPPerLevel * n.Level()

	total := 0
	for _, p := range inst.participants {
		if p.player() != nil {
			total += p.damageDealt[victimID]
		}
	}

	if total > 0 {
		for _, p := range inst.participants {
			pl := p.player()
			if pl == nil {
				continue
			}
			dealt := p.damageDealt[victimID]
			if dealt == 0 {
				continue
			}
			amount := baseXP * dealt / total
			inst.awardLocked(pl, amount, n.Name())
		}
	}

	if inst.deps.Mortician != nil {
		inst.deps.Mortician.HandleNPCDeath(n, inst.lootFor(n), now)
	}
	if inst.deps.NPCs != nil {
		if err := inst.deps.NPCs.Remove(n.ID()); err != nil {
			inst.deps.Logger.Warn("despawning dead npc",
				zap.String("npc_id", n.ID()),
				zap.Error(err),
			)
		}
	}
}

// awardLocked applies an experience gain and announces any level-up.
func (inst *Instance) awardLocked(pl *entity.Player, amount int, reason string) {
	if amount <= 0 {
		return
	}
	newXP, newLevel, leveled := experience.Award(pl.XP(), pl.Level(), amount)
	pl.SetProgress(newXP, newLevel)

	inst.deps.World.Broadcast(inst.roomID,
		fmt.Sprintf("%s gains %d experience for %s.", pl.Name(), amount, reason))
	if leveled {
		inst.deps.World.Broadcast(inst.roomID,
			fmt.Sprintf("%s has reached level %d!", pl.Name(), newLevel))
	}
	inst.deps.Logger.Info("experience awarded",
		zap.String("player_id", pl.ID()),
		zap.Int("amount", amount),
		zap.Int("level", newLevel),
	)
}

// settlePlayerDeathLocked hands the dead player to the mortician for
// penalty, corpse, and respawn, then persists the result.
func (inst *Instance) settlePlayerDeathLocked(pl *entity.Player, now time.Time) {
	if inst.deps.Mortician != nil {
		inst.deps.Mortician.HandlePlayerDeath(pl, now)
	}
	inst.persistPlayer(pl)
}
