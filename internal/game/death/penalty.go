package death

import (
	"time"

	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/experience"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

// WeaknessDuration is how long a respawned player stays weakened.
const WeaknessDuration = time.Minute

// Handler settles deaths: corpse placement for everyone, plus the
// experience penalty and respawn for players.
type Handler struct {
	registry    *Registry
	respawnRoom string
	logger      *zap.Logger
}

// NewHandler creates a death Handler that respawns players in respawnRoom.
//
// Precondition: registry and logger must be non-nil; respawnRoom must name
// an existing room.
func NewHandler(registry *Registry, respawnRoom string, logger *zap.Logger) *Handler {
	return &Handler{
		registry:    registry,
		respawnRoom: respawnRoom,
		logger:      logger,
	}
}

// HandleNPCDeath leaves a corpse holding the instance's generated loot.
func (h *Handler) HandleNPCDeath(n *entity.NPC, loot npc.LootResult, now time.Time) *Corpse {
	corpse := h.registry.Add(n, loot, now)
	h.logger.Info("npc died",
		zap.String("npc_id", n.ID()),
		zap.String("name", n.Name()),
		zap.String("room_id", corpse.RoomID),
	)
	return corpse
}

// HandlePlayerDeath leaves a corpse where the player fell, deducts the
// experience penalty, and moves the player to the respawn room at 1 HP.
//
// Postcondition: the player is alive, at 1 HP, in the respawn room, holding
// at least the threshold XP of their level.
func (h *Handler) HandlePlayerDeath(p *entity.Player, now time.Time) *Corpse {
	corpse := h.registry.Add(p, npc.LootResult{}, now)

	before := p.XP()
	after := experience.DeathPenalty(before, p.Level())
	p.SetProgress(after, p.Level())

	p.Relocate(h.respawnRoom)
	p.SetHealth(1)
	p.SetWeakened(now.Add(WeaknessDuration))

	h.logger.Info("player died",
		zap.String("player_id", p.ID()),
		zap.String("name", p.Name()),
		zap.Int("xp_lost", before-after),
		zap.String("respawn_room", h.respawnRoom),
	)
	return corpse
}
