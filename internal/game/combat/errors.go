// Package combat implements the round-based combat engine: per-room combat
// instances with independent schedulers, initiative-ordered action
// resolution, flee and wimpy mechanics, cooldown-gated skills, and
// proportional experience settlement on death.
package combat

import "errors"

// Validation errors returned synchronously to the command layer. None of
// them mutate combat state.
var (
	// ErrTargetNotFound means no matching live target exists in the room.
	ErrTargetNotFound = errors.New("target not found")
	// ErrInvalidTarget means the named target is not a live participant in
	// the caller's combat instance.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNotInCombat means the caller has no active combat instance.
	ErrNotInCombat = errors.New("not in combat")
	// ErrAlreadyFled means the caller already fled this encounter.
	ErrAlreadyFled = errors.New("already fled")
	// ErrOnCooldown means the skill was used too recently.
	ErrOnCooldown = errors.New("skill on cooldown")
	// ErrRecovering means the caller is in a wait-state and cannot act yet.
	ErrRecovering = errors.New("still recovering")
	// ErrUnknownSkill means no skill with the given name exists.
	ErrUnknownSkill = errors.New("unknown skill")
	// ErrInvalidWimpy means the wimpy threshold is outside [0, 99].
	ErrInvalidWimpy = errors.New("wimpy must be between 0 and 99")
)
