package combat

import (
	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

// npcAction is the per-round decision for a computer-controlled participant.
type npcAction int

const (
	npcActionNone npcAction = iota
	npcActionAttack
	npcActionFlee
)

// chooseNPCAction decides what the NPC participant does this round.
// opponents must hold the live, non-fled player participants of the same
// instance.
//
// Training dummies never act. Anything else flees below the health
// threshold. Passive NPCs always flee when engaged. Aggressive NPCs keep
// their current target, else prefer whoever damaged them most recently,
// else pick a random opponent; with no opponent left they flee.
func chooseNPCAction(src dice.Source, p *Participant, opponents []*Participant, fleeThreshold float64) (npcAction, *Participant) {
	n := p.npc()
	if n == nil || n.Behavior() == npc.BehaviorTrainingDummy {
		return npcActionNone, nil
	}

	cur, max := n.Health()
	if max > 0 && float64(cur)/float64(max) < fleeThreshold {
		return npcActionFlee, nil
	}

	if n.Behavior() == npc.BehaviorPassive {
		return npcActionFlee, nil
	}

	// Aggressive from here on.
	if p.target != nil && p.target.active() {
		return npcActionAttack, p.target
	}
	if len(opponents) == 0 {
		return npcActionFlee, nil
	}
	if lastID := n.LastAttacker(); lastID != "" {
		for _, opp := range opponents {
			if opp.Entity.ID() == lastID {
				return npcActionAttack, opp
			}
		}
	}
	return npcActionAttack, opponents[src.Intn(len(opponents))]
}
