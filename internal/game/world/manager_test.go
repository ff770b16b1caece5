package world_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/game/world"
)

const zoneYAML = `
zone:
  id: university
  name: The University
  start_room: main_hall
  rooms:
    - id: main_hall
      title: Main Hall
      exits:
        - direction: north
          target: courtyard
        - direction: east
          target: archives
          locked: true
    - id: courtyard
      title: Courtyard
      exits:
        - direction: south
          target: main_hall
      spawns:
        - template: training_dummy
          count: 1
    - id: archives
      title: Archives
`

func loadTestManager(t *testing.T) *world.Manager {
	t.Helper()
	zone, err := world.LoadZoneFromBytes([]byte(zoneYAML))
	require.NoError(t, err)
	m, err := world.NewManager([]*world.Zone{zone}, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestLoadZoneFromBytes_ParsesRoomsAndSpawns(t *testing.T) {
	zone, err := world.LoadZoneFromBytes([]byte(zoneYAML))
	require.NoError(t, err)

	require.Equal(t, "university", zone.ID)
	require.Len(t, zone.Rooms, 3)

	courtyard := zone.Rooms["courtyard"]
	require.NotNil(t, courtyard)
	require.Len(t, courtyard.Spawns, 1)
	require.Equal(t, "training_dummy", courtyard.Spawns[0].Template)
}

func TestLoadZoneFromBytes_RejectsMissingStartRoom(t *testing.T) {
	bad := `
zone:
  id: z
  name: Z
  start_room: nowhere
  rooms:
    - id: somewhere
      title: Somewhere
`
	_, err := world.LoadZoneFromBytes([]byte(bad))
	require.Error(t, err)
}

func TestExits_SkipsLockedExits(t *testing.T) {
	m := loadTestManager(t)

	exits := m.Exits("main_hall")
	require.Len(t, exits, 1)
	require.Equal(t, world.North, exits[0].Direction)
	require.Equal(t, "courtyard", exits[0].Target)
}

func TestValidateExits_DanglingTarget(t *testing.T) {
	zone, err := world.LoadZoneFromBytes([]byte(zoneYAML))
	require.NoError(t, err)
	zone.Rooms["archives"].Exits = []world.Exit{{Direction: world.Down, Target: "missing"}}

	m, err := world.NewManager([]*world.Zone{zone}, zap.NewNop())
	require.NoError(t, err)
	require.Error(t, m.ValidateExits())
}

func TestBroadcast_FansOutToAttachedListeners(t *testing.T) {
	m := loadTestManager(t)

	var got []string
	m.Attach("main_hall", "p1", func(text string) { got = append(got, "p1:"+text) })
	m.Attach("main_hall", "p2", func(text string) { got = append(got, "p2:"+text) })
	m.Attach("courtyard", "p3", func(text string) { got = append(got, "p3:"+text) })

	m.Broadcast("main_hall", "hello")
	require.Len(t, got, 2)
	require.NotContains(t, got, "p3:hello")

	m.Detach("main_hall", "p2")
	got = nil
	m.Broadcast("main_hall", "again")
	require.Equal(t, []string{"p1:again"}, got)
}
