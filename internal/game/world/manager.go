package world

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Manager provides thread-safe access to the loaded world and room-scoped
// broadcast fan-out. It indexes rooms across all zones for O(1) lookup.
type Manager struct {
	logger *zap.Logger

	mu    sync.RWMutex
	zones map[string]*Zone
	rooms map[string]*Room

	listenersMu sync.RWMutex
	// listeners maps roomID → listenerID → sink.
	listeners map[string]map[string]func(text string)
}

// NewManager creates a Manager from the given zones.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a Manager with all rooms indexed by ID, or an error
// on duplicate zone or room IDs.
func NewManager(zones []*Zone, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger:    logger,
		zones:     make(map[string]*Zone, len(zones)),
		rooms:     make(map[string]*Room),
		listeners: make(map[string]map[string]func(string)),
	}

	for _, z := range zones {
		if _, exists := m.zones[z.ID]; exists {
			return nil, fmt.Errorf("duplicate zone ID: %q", z.ID)
		}
		m.zones[z.ID] = z
		for id, room := range z.Rooms {
			if existing, exists := m.rooms[id]; exists {
				return nil, fmt.Errorf("duplicate room ID %q: in zone %q and %q", id, existing.ZoneID, z.ID)
			}
			m.rooms[id] = room
		}
	}

	return m, nil
}

// ValidateExits checks that every exit target resolves to a known room
// across all loaded zones.
//
// Postcondition: Returns nil if all exits resolve, or an error naming the
// first dangling target.
func (m *Manager) ValidateExits() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, zone := range m.zones {
		for _, room := range zone.Rooms {
			for _, exit := range room.Exits {
				if _, ok := m.rooms[exit.Target]; !ok {
					return fmt.Errorf("zone %q: room %q: exit %q targets unknown room %q",
						zone.ID, room.ID, exit.Direction, exit.Target)
				}
			}
		}
	}
	return nil
}

// GetRoom returns the room with the given ID.
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Exits returns the open exits of the given room. Returns nil when the room
// is unknown or has no open exits.
func (m *Manager) Exits(roomID string) []Exit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	return room.OpenExits()
}

// Zones returns all loaded zones.
func (m *Manager) Zones() []*Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Zone, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, z)
	}
	return out
}

// RoomCount returns the total number of rooms across all zones.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Attach registers a broadcast sink for a room. A listener with the same
// listenerID replaces any previous registration (a player moving rooms
// re-attaches under the same ID).
//
// Precondition: roomID and listenerID must be non-empty; sink must be non-nil.
func (m *Manager) Attach(roomID, listenerID string, sink func(text string)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	if m.listeners[roomID] == nil {
		m.listeners[roomID] = make(map[string]func(string))
	}
	m.listeners[roomID][listenerID] = sink
}

// Detach removes a listener from a room. Unknown IDs are a no-op.
func (m *Manager) Detach(roomID, listenerID string) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	delete(m.listeners[roomID], listenerID)
}

// Broadcast delivers text to every listener attached to roomID. Delivery is
// synchronous; sinks must be fast and must not call back into the Manager.
func (m *Manager) Broadcast(roomID, text string) {
	m.listenersMu.RLock()
	sinks := make([]func(string), 0, len(m.listeners[roomID]))
	for _, sink := range m.listeners[roomID] {
		sinks = append(sinks, sink)
	}
	m.listenersMu.RUnlock()

	for _, sink := range sinks {
		sink(text)
	}
	m.logger.Debug("room broadcast",
		zap.String("room_id", roomID),
		zap.Int("listeners", len(sinks)),
		zap.String("text", text),
	)
}
