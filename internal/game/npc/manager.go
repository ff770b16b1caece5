package npc

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns all live NPC instances, indexed by instance ID and room.
// All methods are safe for concurrent use.
type Manager struct {
	logger *zap.Logger

	mu        sync.RWMutex
	instances map[string]*Instance
	byRoom    map[string][]*Instance
}

// NewManager creates an empty instance Manager.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		instances: make(map[string]*Instance),
		byRoom:    make(map[string][]*Instance),
	}
}

// Spawn creates a live instance of tmpl in roomID.
//
// Precondition: tmpl must be validated; roomID must be non-empty.
// Postcondition: Returns the new Instance, registered in both indexes.
func (m *Manager) Spawn(tmpl *Template, roomID string) (*Instance, error) {
	if roomID == "" {
		return nil, fmt.Errorf("npc: spawn room must not be empty")
	}
	inst := NewInstance(uuid.New().String(), tmpl, roomID)

	m.mu.Lock()
	m.instances[inst.ID] = inst
	m.byRoom[roomID] = append(m.byRoom[roomID], inst)
	m.mu.Unlock()

	m.logger.Info("npc spawned",
		zap.String("instance_id", inst.ID),
		zap.String("template_id", tmpl.ID),
		zap.String("room_id", roomID),
	)
	return inst, nil
}

// Remove deletes the instance from both indexes.
//
// Postcondition: Returns an error if the instance is unknown.
func (m *Manager) Remove(instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[instanceID]
	if !ok {
		return fmt.Errorf("npc: instance %q not found", instanceID)
	}
	delete(m.instances, instanceID)

	room := m.byRoom[inst.RoomID]
	for i, r := range room {
		if r.ID == instanceID {
			m.byRoom[inst.RoomID] = append(room[:i], room[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the instance with the given ID.
func (m *Manager) Get(instanceID string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[instanceID]
	return inst, ok
}

// InstancesInRoom returns a snapshot of the instances in roomID.
func (m *Manager) InstancesInRoom(roomID string) []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Instance(nil), m.byRoom[roomID]...)
}

// FindInRoom locates a live instance in roomID by keyword. The keyword may
// carry an ordinal prefix ("2.rat" matches the second rat). Dead instances
// are skipped.
//
// Postcondition: Returns the matching Instance or nil.
func (m *Manager) FindInRoom(roomID, keyword string) *Instance {
	index := 1
	term := keyword
	if dot := strings.Index(keyword, "."); dot > 0 {
		if n, err := strconv.Atoi(keyword[:dot]); err == nil {
			if n > 0 {
				index = n
			}
			term = keyword[dot+1:]
		}
	}

	matches := 0
	for _, inst := range m.InstancesInRoom(roomID) {
		if !inst.Alive() {
			continue
		}
		if inst.MatchesKeyword(term) {
			matches++
			if matches == index {
				return inst
			}
		}
	}
	return nil
}

func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
