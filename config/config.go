// Package config is the unified operating configuration for the
// engine: device capability overrides, vendor transport-mode
// selection, plugin resource caps, and migration backup retention, all
// hot-reloadable from one YAML file. It follows the teacher's
// unified-config-plus-hot-reload shape
// (engine/config/unified_config.go, engine/internal/runtime/runtime.go)
// generalized from crawl policies to OpenRacing's domain settings.
package config

import (
	"fmt"
	"time"

	"github.com/openracing/core/capabilities"
	"github.com/openracing/core/plugin"
)

// VendorOverride lets an operator pin a vendor's transport mode or
// reduce its torque cap without recompiling (SPEC_FULL.md §3.1).
type VendorOverride struct {
	TransportMode string   `yaml:"transport_mode,omitempty"`
	MaxTorqueNm   *float64 `yaml:"max_torque_nm,omitempty"`
}

// ResolvedTransportMode parses TransportMode, defaulting to
// capabilities.TransportUnset when the override does not set one.
func (v VendorOverride) ResolvedTransportMode() (capabilities.TransportMode, error) {
	if v.TransportMode == "" {
		return capabilities.TransportUnset, nil
	}
	mode, ok := capabilities.ParseTransportMode(v.TransportMode)
	if !ok {
		return capabilities.TransportUnset, fmt.Errorf("config: unrecognized transport_mode %q", v.TransportMode)
	}
	return mode, nil
}

// MigrationSettings controls profile schema migration (component F).
type MigrationSettings struct {
	BackupDir      string `yaml:"backup_dir"`
	RetainBackups  int    `yaml:"retain_backups"`
	WatchEnabled   bool   `yaml:"watch_enabled"`
	WatchDirectory string `yaml:"watch_directory,omitempty"`
}

// Observability controls the ambient logging/tracing/metrics stack.
type Observability struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	TraceEnabled   bool   `yaml:"trace_enabled"`
}

// Config is the engine's unified operating configuration.
type Config struct {
	Version          string                    `yaml:"version"`
	Environment      string                    `yaml:"environment"`
	VendorOverrides  map[string]VendorOverride `yaml:"vendor_overrides,omitempty"`
	PluginLimits     plugin.Limits             `yaml:"plugin_limits"`
	Migration        MigrationSettings         `yaml:"migration"`
	Observability    Observability             `yaml:"observability"`
	HotReloadEnabled bool                      `yaml:"hot_reload_enabled"`

	// UpdatedAt and Checksum are maintained by Manager, not hand-authored.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
	Checksum  string    `yaml:"checksum,omitempty"`
}

// Default returns a Config with the same sensible defaults the rest of
// the module already uses standalone (plugin.DefaultLimits, a backup
// retention of 5).
func Default() Config {
	return Config{
		Version:     "1.0.0",
		Environment: "development",
		PluginLimits: plugin.DefaultLimits(),
		Migration: MigrationSettings{
			BackupDir:     "backups",
			RetainBackups: 5,
		},
		Observability: Observability{
			LogLevel: "info",
		},
	}
}

// Validator checks a candidate Config before it is accepted.
type Validator interface {
	Validate(cfg *Config) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(cfg *Config) error

func (f ValidatorFunc) Validate(cfg *Config) error { return f(cfg) }

// defaultValidator enforces the structural invariants every Config must
// satisfy regardless of what an operator overrides.
type defaultValidator struct{}

func (defaultValidator) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	for vendor, override := range cfg.VendorOverrides {
		if _, err := override.ResolvedTransportMode(); err != nil {
			return fmt.Errorf("config: vendor_overrides[%s]: %w", vendor, err)
		}
		if override.MaxTorqueNm != nil && *override.MaxTorqueNm <= 0 {
			return fmt.Errorf("config: vendor_overrides[%s]: max_torque_nm must be positive", vendor)
		}
	}
	if cfg.PluginLimits.MaxInstances < 0 {
		return fmt.Errorf("config: plugin_limits.max_instances must be non-negative")
	}
	if cfg.Migration.RetainBackups < 0 {
		return fmt.Errorf("config: migration.retain_backups must be non-negative")
	}
	if cfg.Migration.WatchEnabled && cfg.Migration.WatchDirectory == "" {
		return fmt.Errorf("config: migration.watch_directory required when watch_enabled is true")
	}
	return nil
}
