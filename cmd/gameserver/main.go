// Package main runs the Waystone game server: it loads world content,
// connects persistence, and drives the combat engine under a managed
// lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/waystone-mud/waystone/internal/config"
	"github.com/waystone-mud/waystone/internal/game/combat"
	"github.com/waystone-mud/waystone/internal/game/death"
	"github.com/waystone-mud/waystone/internal/game/dice"
	"github.com/waystone-mud/waystone/internal/game/npc"
	"github.com/waystone-mud/waystone/internal/game/world"
	"github.com/waystone-mud/waystone/internal/observability"
	"github.com/waystone-mud/waystone/internal/scripting"
	"github.com/waystone-mud/waystone/internal/server"
	"github.com/waystone-mud/waystone/internal/storage/postgres"
)

// zoneHooks routes combat events from a room to its zone's Lua script.
type zoneHooks struct {
	hooks    *scripting.Hooks
	worldMgr *world.Manager
}

func (z *zoneHooks) OnCombatStart(roomID string, ev scripting.CombatEvent) {
	if room, ok := z.worldMgr.GetRoom(roomID); ok {
		z.hooks.OnCombatStart(room.ZoneID, ev)
	}
}

func (z *zoneHooks) OnDeath(roomID string, ev scripting.CombatEvent) {
	if room, ok := z.worldMgr.GetRoom(roomID); ok {
		z.hooks.OnDeath(room.ZoneID, ev)
	}
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	roller := dice.NewRoller(dice.NewCryptoSource(), logger)

	// Load world content.
	zoneStart := time.Now()
	zones, err := world.LoadZonesFromDir(cfg.World.ZoneDir)
	if err != nil {
		logger.Fatal("loading zones", zap.Error(err))
	}
	worldMgr, err := world.NewManager(zones, logger)
	if err != nil {
		logger.Fatal("creating world manager", zap.Error(err))
	}
	if err := worldMgr.ValidateExits(); err != nil {
		logger.Fatal("validating world exits", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.Int("zones", len(zones)),
		zap.Int("rooms", worldMgr.RoomCount()),
		zap.Duration("elapsed", time.Since(zoneStart)),
	)
	if _, ok := worldMgr.GetRoom(cfg.World.RespawnRoom); !ok {
		logger.Fatal("respawn room not found", zap.String("room_id", cfg.World.RespawnRoom))
	}

	// Load NPC templates and populate spawns.
	templates, err := npc.LoadTemplates(cfg.World.NPCDir)
	if err != nil {
		logger.Fatal("loading npc templates", zap.Error(err))
	}
	logger.Info("loaded npc templates", zap.Int("count", len(templates)))

	npcMgr := npc.NewManager(logger)
	for _, zone := range worldMgr.Zones() {
		for _, room := range zone.Rooms {
			for _, spawn := range room.Spawns {
				tmpl, ok := templates[spawn.Template]
				if !ok {
					logger.Fatal("spawn references unknown npc template",
						zap.String("zone", zone.ID),
						zap.String("room", room.ID),
						zap.String("template", spawn.Template),
					)
				}
				for i := 0; i < spawn.Count; i++ {
					if _, err := npcMgr.Spawn(tmpl, room.ID); err != nil {
						logger.Fatal("spawning npc", zap.Error(err))
					}
				}
			}
		}
	}

	// Connect persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	charStore := postgres.NewCharacterStore(pool.DB())

	// Death handling: corpse registry plus penalty/respawn.
	registry := death.NewRegistry(logger)
	mortician := death.NewHandler(registry, cfg.World.RespawnRoom, logger)

	// Zone scripting hooks.
	hooks := scripting.NewHooks(logger)
	if cfg.World.ScriptDir != "" {
		if err := hooks.LoadDir(cfg.World.ScriptDir); err != nil {
			logger.Fatal("loading zone scripts", zap.Error(err))
		}
	}

	engine := combat.NewEngine(cfg.Combat, npcMgr, combat.Deps{
		World:     worldMgr,
		Roller:    roller,
		Mortician: mortician,
		NPCs:      npcMgr,
		Saver:     charStore,
		Hooks:     &zoneHooks{hooks: hooks, worldMgr: worldMgr},
		Logger:    logger,
	})

	// Wire lifecycle. Combat registers last so shutdown cancels every
	// instance before its collaborators go away.
	lifecycle := server.NewLifecycle(logger)

	healthDone := make(chan struct{})
	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-healthDone:
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: func() {
			close(healthDone)
			pool.Close()
		},
	})

	sweeperDone := make(chan struct{})
	lifecycle.Add("corpse-sweeper", &server.FuncService{
		StartFn: func() error {
			registry.RunSweeper(sweeperDone, 30*time.Second)
			return nil
		},
		StopFn: func() {
			close(sweeperDone)
		},
	})

	combatDone := make(chan struct{})
	lifecycle.Add("combat", &server.FuncService{
		StartFn: func() error {
			<-combatDone
			return nil
		},
		StopFn: func() {
			engine.Shutdown()
			hooks.Close()
			close(combatDone)
		},
	})

	logger.Info("game server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
