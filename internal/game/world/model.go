// Package world provides the game world model: zones, rooms, and exits,
// plus room-scoped broadcast fan-out.
package world

import "fmt"

// Direction is a compass direction or named exit.
type Direction string

// Standard compass directions and vertical movements.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Exit is a passage from one room to another.
type Exit struct {
	// Direction is the compass direction or named exit (e.g. "archway").
	Direction Direction
	// Target is the ID of the destination room.
	Target string
	// Locked indicates the exit cannot currently be passed.
	Locked bool
}

// SpawnConfig declares an NPC template that populates a room.
type SpawnConfig struct {
	// Template is the NPC template ID.
	Template string
	// Count is the number of live instances kept in the room.
	Count int
}

// Room is a location in the game world. Rooms are the unit of combat
// concurrency: at most one combat instance is active per room.
type Room struct {
	ID          string
	ZoneID      string
	Title       string
	Description string
	Exits       []Exit
	Spawns      []SpawnConfig
}

// ExitFor returns the exit in the given direction, if one exists.
func (r *Room) ExitFor(dir Direction) (Exit, bool) {
	for _, e := range r.Exits {
		if e.Direction == dir {
			return e, true
		}
	}
	return Exit{}, false
}

// OpenExits returns all unlocked exits from this room. Flee destinations are
// drawn uniformly from this set.
func (r *Room) OpenExits() []Exit {
	var open []Exit
	for _, e := range r.Exits {
		if !e.Locked {
			open = append(open, e)
		}
	}
	return open
}

// Zone groups related rooms into a themed area.
type Zone struct {
	ID          string
	Name        string
	Description string
	// StartRoom is the ID of the default entry room.
	StartRoom string
	// Rooms contains all rooms in this zone, keyed by room ID.
	Rooms map[string]*Room
	// ScriptDir is the path to Lua hook scripts for this zone. Empty = none.
	ScriptDir string
}

// Validate checks zone invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first
// violation.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone ID must not be empty")
	}
	if z.Name == "" {
		return fmt.Errorf("zone %q: name must not be empty", z.ID)
	}
	if z.StartRoom == "" {
		return fmt.Errorf("zone %q: start_room must not be empty", z.ID)
	}
	if _, ok := z.Rooms[z.StartRoom]; !ok {
		return fmt.Errorf("zone %q: start_room %q is not a room in the zone", z.ID, z.StartRoom)
	}
	for id, room := range z.Rooms {
		if room.ID != id {
			return fmt.Errorf("zone %q: room key %q does not match room ID %q", z.ID, id, room.ID)
		}
		for _, spawn := range room.Spawns {
			if spawn.Template == "" {
				return fmt.Errorf("zone %q: room %q: spawn template must not be empty", z.ID, id)
			}
			if spawn.Count < 1 {
				return fmt.Errorf("zone %q: room %q: spawn count must be >= 1", z.ID, id)
			}
		}
	}
	return nil
}
