package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook function names a zone script may define. Undefined hooks are skipped
// silently.
const (
	hookCombatStart = "on_combat_start"
	hookDeath       = "on_death"
)

// CombatEvent is the payload handed to combat hooks, marshalled into a Lua
// table.
type CombatEvent struct {
	RoomID     string
	EntityID   string
	EntityName string
	EntityKind string
	KillerID   string
	KillerName string
}

// Hooks owns per-zone sandboxed Lua states and dispatches combat events to
// them. Each zone script runs in its own VM; a failure in one zone's script
// never affects another. Dispatch is serialized per Hooks instance because
// LStates are not safe for concurrent use.
type Hooks struct {
	logger *zap.Logger

	mu     sync.Mutex
	states map[string]*lua.LState // zone ID -> loaded VM
}

// NewHooks creates an empty hook dispatcher.
func NewHooks(logger *zap.Logger) *Hooks {
	return &Hooks{
		logger: logger,
		states: make(map[string]*lua.LState),
	}
}

// LoadZoneScript compiles the script at path into a fresh sandboxed VM for
// zoneID, replacing any previously loaded script.
//
// Postcondition: On success the zone's hooks are callable; on error the
// previous script (if any) stays active.
func (h *Hooks) LoadZoneScript(zoneID, path string) error {
	L := NewSandboxedState(0)
	if err := L.DoFile(path); err != nil {
		L.Close()
		return fmt.Errorf("loading zone script %q: %w", path, err)
	}

	h.mu.Lock()
	if old, ok := h.states[zoneID]; ok {
		old.Close()
	}
	h.states[zoneID] = L
	h.mu.Unlock()

	h.logger.Info("zone script loaded",
		zap.String("zone_id", zoneID),
		zap.String("path", path),
	)
	return nil
}

// LoadDir loads every .lua file in dir, keyed by base filename without the
// extension ("university.lua" serves zone "university"). A missing dir is
// not an error; individual script failures are logged and skipped.
func (h *Hooks) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading script dir %q: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		zoneID := e.Name()[:len(e.Name())-len(".lua")]
		if err := h.LoadZoneScript(zoneID, filepath.Join(dir, e.Name())); err != nil {
			h.logger.Warn("skipping zone script", zap.String("file", e.Name()), zap.Error(err))
		}
	}
	return nil
}

// OnCombatStart fires the zone's on_combat_start hook, if defined.
func (h *Hooks) OnCombatStart(zoneID string, ev CombatEvent) {
	h.call(zoneID, hookCombatStart, ev)
}

// OnDeath fires the zone's on_death hook, if defined.
func (h *Hooks) OnDeath(zoneID string, ev CombatEvent) {
	h.call(zoneID, hookDeath, ev)
}

// call invokes the named global function with ev as a table argument.
// Script errors are logged, never propagated.
func (h *Hooks) call(zoneID, fn string, ev CombatEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	L, ok := h.states[zoneID]
	if !ok {
		return
	}
	callee := L.GetGlobal(fn)
	if callee.Type() != lua.LTFunction {
		return
	}

	// Fresh opcode budget per invocation; a hook that blew its budget last
	// round gets a clean slate this round.
	ctx, _ := newCountingContext(DefaultInstructionLimit) //nolint:govet // cancel fires when the budget is spent
	L.SetContext(ctx)

	tbl := L.NewTable()
	L.SetField(tbl, "room_id", lua.LString(ev.RoomID))
	L.SetField(tbl, "entity_id", lua.LString(ev.EntityID))
	L.SetField(tbl, "entity_name", lua.LString(ev.EntityName))
	L.SetField(tbl, "entity_kind", lua.LString(ev.EntityKind))
	L.SetField(tbl, "killer_id", lua.LString(ev.KillerID))
	L.SetField(tbl, "killer_name", lua.LString(ev.KillerName))

	err := L.CallByParam(lua.P{Fn: callee, NRet: 0, Protect: true}, tbl)
	if err != nil {
		h.logger.Warn("zone hook failed",
			zap.String("zone_id", zoneID),
			zap.String("hook", fn),
			zap.Error(err),
		)
	}
}

// Close releases every loaded VM.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, L := range h.states {
		L.Close()
		delete(h.states, id)
	}
}
