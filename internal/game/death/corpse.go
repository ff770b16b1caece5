// Package death handles what happens after the killing blow: corpses and
// their decay, and the penalty and respawn applied to dead players.
package death

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/entity"
	"github.com/waystone-mud/waystone/internal/game/npc"
)

// Decay windows. Player corpses linger longer so the owner can retrieve
// them after respawning.
const (
	NPCDecay    = 5 * time.Minute
	PlayerDecay = 10 * time.Minute
)

// Corpse is the remains of a dead combatant, lying in a room until it
// decays.
type Corpse struct {
	ID        string
	OwnerID   string
	OwnerName string
	Kind      entity.Kind
	RoomID    string
	Loot      npc.LootResult
	CreatedAt time.Time
	DecayAt   time.Time
}

// Registry tracks corpses by ID and room and sweeps them out as they decay.
// All methods are safe for concurrent use.
type Registry struct {
	logger *zap.Logger

	mu      sync.Mutex
	corpses map[string]*Corpse
	byRoom  map[string][]*Corpse
}

// NewRegistry creates an empty corpse Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:  logger,
		corpses: make(map[string]*Corpse),
		byRoom:  make(map[string][]*Corpse),
	}
}

// Add places a corpse for the given combatant in its room and returns it.
//
// Postcondition: the corpse is indexed by ID and room with a decay deadline
// set from the combatant kind.
func (r *Registry) Add(e entity.Entity, loot npc.LootResult, now time.Time) *Corpse {
	decay := NPCDecay
	if e.Kind() == entity.KindPlayer {
		decay = PlayerDecay
	}
	c := &Corpse{
		ID:        uuid.New().String(),
		OwnerID:   e.ID(),
		OwnerName: e.Name(),
		Kind:      e.Kind(),
		RoomID:    e.RoomID(),
		Loot:      loot,
		CreatedAt: now,
		DecayAt:   now.Add(decay),
	}

	r.mu.Lock()
	r.corpses[c.ID] = c
	r.byRoom[c.RoomID] = append(r.byRoom[c.RoomID], c)
	r.mu.Unlock()

	r.logger.Debug("corpse created",
		zap.String("corpse_id", c.ID),
		zap.String("owner", c.OwnerName),
		zap.String("room_id", c.RoomID),
		zap.Time("decay_at", c.DecayAt),
	)
	return c
}

// InRoom returns a snapshot of the corpses lying in roomID.
func (r *Registry) InRoom(roomID string) []*Corpse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Corpse(nil), r.byRoom[roomID]...)
}

// Get returns the corpse with the given ID.
func (r *Registry) Get(id string) (*Corpse, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.corpses[id]
	return c, ok
}

// Sweep removes every corpse whose decay deadline has passed and returns
// the removed corpses.
func (r *Registry) Sweep(now time.Time) []*Corpse {
	r.mu.Lock()
	defer r.mu.Unlock()

	var decayed []*Corpse
	for id, c := range r.corpses {
		if now.Before(c.DecayAt) {
			continue
		}
		decayed = append(decayed, c)
		delete(r.corpses, id)

		room := r.byRoom[c.RoomID]
		for i, rc := range room {
			if rc.ID == id {
				r.byRoom[c.RoomID] = append(room[:i], room[i+1:]...)
				break
			}
		}
		if len(r.byRoom[c.RoomID]) == 0 {
			delete(r.byRoom, c.RoomID)
		}
	}

	for _, c := range decayed {
		r.logger.Debug("corpse decayed",
			zap.String("corpse_id", c.ID),
			zap.String("owner", c.OwnerName),
		)
	}
	return decayed
}

// RunSweeper sweeps on the given interval until done is closed. Intended to
// run as a background goroutine under the server lifecycle.
func (r *Registry) RunSweeper(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}
