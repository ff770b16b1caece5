// Package npc provides NPC template definitions and live instance management.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Behavior classifies how an NPC acts when engaged in combat.
type Behavior string

const (
	// BehaviorAggressive NPCs pick a target and attack every round.
	BehaviorAggressive Behavior = "aggressive"
	// BehaviorPassive NPCs always attempt to flee when engaged.
	BehaviorPassive Behavior = "passive"
	// BehaviorTrainingDummy NPCs never act and never flee.
	BehaviorTrainingDummy Behavior = "training_dummy"
)

// Valid reports whether b is a known behavior classification.
func (b Behavior) Valid() bool {
	switch b {
	case BehaviorAggressive, BehaviorPassive, BehaviorTrainingDummy:
		return true
	}
	return false
}

// Template defines a reusable NPC archetype loaded from YAML.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Keywords are the nouns players may target this NPC by.
	Keywords []string `yaml:"keywords"`
	Level    int      `yaml:"level"`
	MaxHP    int      `yaml:"max_hp"`
	// Attributes holds ability scores keyed by name ("strength",
	// "dexterity", ...). Missing attributes default to 10.
	Attributes map[string]int `yaml:"attributes"`
	Behavior   Behavior       `yaml:"behavior"`
	Loot       *LootTable     `yaml:"loot"`
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// MaxHP >= 1, and Behavior is a known classification.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("npc template %q: level must be >= 1", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("npc template %q: max_hp must be >= 1", t.ID)
	}
	if !t.Behavior.Valid() {
		return fmt.Errorf("npc template %q: unknown behavior %q", t.ID, t.Behavior)
	}
	if t.Loot != nil {
		if err := t.Loot.Validate(); err != nil {
			return fmt.Errorf("npc template %q: %w", t.ID, err)
		}
	}
	return nil
}

// LoadTemplateFromBytes parses a single NPC template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed
// templates keyed by template ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure; on error the partial result is discarded.
func LoadTemplates(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	templates := make(map[string]*Template)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if _, dup := templates[tmpl.ID]; dup {
			return nil, fmt.Errorf("duplicate npc template ID %q in %q", tmpl.ID, path)
		}
		templates[tmpl.ID] = tmpl
	}
	return templates, nil
}
