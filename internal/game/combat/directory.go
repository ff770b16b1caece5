package combat

import (
	"sync"

	"go.uber.org/zap"
)

// Directory is the process-wide registry of active combat instances, one
// per room at most. Insert-if-absent semantics guarantee two simultaneous
// engage calls against the same room join one instance instead of racing
// two into existence.
type Directory struct {
	logger *zap.Logger

	mu       sync.Mutex
	byRoom   map[string]*Instance
	byEntity map[string]*Instance
}

// NewDirectory creates an empty Directory.
func NewDirectory(logger *zap.Logger) *Directory {
	return &Directory{
		logger:   logger,
		byRoom:   make(map[string]*Instance),
		byEntity: make(map[string]*Instance),
	}
}

// GetOrCreate returns the active instance for roomID, creating one via
// create if absent. Reports whether this call created it.
//
// The create function must not call back into the Directory.
func (d *Directory) GetOrCreate(roomID string, create func() *Instance) (*Instance, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if inst, ok := d.byRoom[roomID]; ok {
		return inst, false
	}
	inst := create()
	d.byRoom[roomID] = inst
	d.logger.Debug("combat instance registered",
		zap.String("instance_id", inst.ID()),
		zap.String("room_id", roomID),
	)
	return inst, true
}

// Get returns the active instance for roomID, if any.
func (d *Directory) Get(roomID string) (*Instance, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.byRoom[roomID]
	return inst, ok
}

// Register indexes an entity as belonging to the given instance so
// command-layer calls can find a player's fight after a flee moved them to
// another room.
func (d *Directory) Register(entityID string, inst *Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEntity[entityID] = inst
}

// FindByEntity returns the instance the entity is fighting in, if any.
func (d *Directory) FindByEntity(entityID string) (*Instance, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.byEntity[entityID]
	return inst, ok
}

// Remove unregisters the instance and every entity indexed to it. A stale
// call naming a room now owned by a newer instance is a no-op.
func (d *Directory) Remove(inst *Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if current, ok := d.byRoom[inst.RoomID()]; ok && current == inst {
		delete(d.byRoom, inst.RoomID())
	}
	for id, owner := range d.byEntity {
		if owner == inst {
			delete(d.byEntity, id)
		}
	}
}

// Active returns the number of registered instances.
func (d *Directory) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byRoom)
}

// Shutdown ends every registered instance and waits for each scheduler to
// exit. No round executes after Shutdown returns.
func (d *Directory) Shutdown() {
	d.mu.Lock()
	instances := make([]*Instance, 0, len(d.byRoom))
	for _, inst := range d.byRoom {
		instances = append(instances, inst)
	}
	d.mu.Unlock()

	for _, inst := range instances {
		inst.End("The world grows still.")
		inst.Wait()
	}
	d.logger.Info("combat directory shut down", zap.Int("instances", len(instances)))
}
