// Package config provides Viper-based configuration loading for the Waystone
// game server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// CombatConfig holds the combat engine tuning knobs.
type CombatConfig struct {
	// RoundPeriod is the time between combat rounds.
	RoundPeriod time.Duration `mapstructure:"round_period"`
	// FleeDC is the d20+dex total required for a flee attempt to succeed.
	FleeDC int `mapstructure:"flee_dc"`
	// NPCFleeThreshold is the health fraction below which NPCs attempt to
	// flee regardless of behavior (except stationary dummies).
	NPCFleeThreshold float64 `mapstructure:"npc_flee_threshold"`
	// MovementLag is the wait-state applied after a successful flee.
	MovementLag time.Duration `mapstructure:"movement_lag"`
	// FailedFleeLag is the wait-state applied after a failed flee attempt.
	FailedFleeLag time.Duration `mapstructure:"failed_flee_lag"`
	// BaseXPPerLevel is the base experience per NPC level awarded on a kill.
	BaseXPPerLevel int `mapstructure:"base_xp_per_level"`
}

// WorldConfig holds content directory paths.
type WorldConfig struct {
	// ZoneDir contains the zone/room YAML files.
	ZoneDir string `mapstructure:"zone_dir"`
	// NPCDir contains the NPC template YAML files.
	NPCDir string `mapstructure:"npc_dir"`
	// ScriptDir contains per-zone Lua hook scripts. Empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// RespawnRoom is where dead players reappear.
	RespawnRoom string `mapstructure:"respawn_room"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Combat   CombatConfig   `mapstructure:"combat"`
	World    WorldConfig    `mapstructure:"world"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if the configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWorld(c.World); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be in [0, max_conns]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(cc CombatConfig) error {
	var errs []string
	if cc.RoundPeriod <= 0 {
		errs = append(errs, "combat.round_period must be > 0")
	}
	if cc.FleeDC < 1 || cc.FleeDC > 20 {
		errs = append(errs, fmt.Sprintf("combat.flee_dc must be 1-20, got %d", cc.FleeDC))
	}
	if cc.NPCFleeThreshold < 0 || cc.NPCFleeThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("combat.npc_flee_threshold must be in [0, 1), got %f", cc.NPCFleeThreshold))
	}
	if cc.MovementLag < 0 {
		errs = append(errs, "combat.movement_lag must not be negative")
	}
	if cc.FailedFleeLag < 0 {
		errs = append(errs, "combat.failed_flee_lag must not be negative")
	}
	if cc.BaseXPPerLevel < 1 {
		errs = append(errs, fmt.Sprintf("combat.base_xp_per_level must be >= 1, got %d", cc.BaseXPPerLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	var errs []string
	if w.ZoneDir == "" {
		errs = append(errs, "world.zone_dir must not be empty")
	}
	if w.NPCDir == "" {
		errs = append(errs, "world.npc_dir must not be empty")
	}
	if w.RespawnRoom == "" {
		errs = append(errs, "world.respawn_room must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must point to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with WAYSTONE_ prefix
	v.SetEnvPrefix("WAYSTONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "waystone")
	v.SetDefault("database.password", "waystone")
	v.SetDefault("database.name", "waystone")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("combat.round_period", "3s")
	v.SetDefault("combat.flee_dc", 12)
	v.SetDefault("combat.npc_flee_threshold", 0.2)
	v.SetDefault("combat.movement_lag", "1s")
	v.SetDefault("combat.failed_flee_lag", "1s")
	v.SetDefault("combat.base_xp_per_level", 10)

	v.SetDefault("world.zone_dir", "content/zones")
	v.SetDefault("world.npc_dir", "content/npcs")
	v.SetDefault("world.script_dir", "")
	v.SetDefault("world.respawn_room", "university_main_hall")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
