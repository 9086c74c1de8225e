package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the tunable parameters of the behaviour engine.
// Every field is a pointer so partial JSON files are safe: fields
// omitted from the file fall back to the documented default in the
// corresponding Get method. Historical revisions moved several of
// these (notably crowd_threshold, 5 → 2), so no scoring threshold may
// appear as a literal anywhere outside this package.
type TuningConfig struct {
	// Clock params
	TicksPerSecond *int `json:"ticks_per_second,omitempty"`

	// Identity memory params
	LivenessTimeoutTicks   *int     `json:"liveness_timeout_ticks,omitempty"`
	HistoryLookbackSeconds *float64 `json:"history_lookback_seconds,omitempty"`
	CleanupIntervalTicks   *int     `json:"cleanup_interval_ticks,omitempty"`

	// Scoring rule thresholds
	LoiterSeconds            *float64 `json:"loiter_seconds,omitempty"`
	StillnessDistancePx      *float64 `json:"stillness_distance_px,omitempty"`
	StillnessLookbackSeconds *float64 `json:"stillness_lookback_seconds,omitempty"`
	ErraticDistancePx        *float64 `json:"erratic_distance_px,omitempty"`
	ErraticLookbackSeconds   *float64 `json:"erratic_lookback_seconds,omitempty"`
	CrowdThreshold           *int     `json:"crowd_threshold,omitempty"`
	EdgeMarginFraction       *float64 `json:"edge_margin_fraction,omitempty"`

	// Scoring rule weights
	LoiterBonus    *int `json:"loiter_bonus,omitempty"`
	ZoneBonus      *int `json:"zone_bonus,omitempty"`
	StillnessBonus *int `json:"stillness_bonus,omitempty"`
	ErraticBonus   *int `json:"erratic_bonus,omitempty"`
	CrowdBonus     *int `json:"crowd_bonus,omitempty"`
	WeaponBonus    *int `json:"weapon_bonus,omitempty"`
	ItemBonus      *int `json:"item_bonus,omitempty"`
	EdgeBonus      *int `json:"edge_bonus,omitempty"`

	// Association params
	MinAssocIoU *float64 `json:"min_assoc_iou,omitempty"`

	// Weapon memory params
	WeaponHoldTicks *int     `json:"weapon_hold_ticks,omitempty"`
	NMSIoU          *float64 `json:"nms_iou,omitempty"`

	// Alert persistence params
	AlertThrottleTicks *int `json:"alert_throttle_ticks,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
// Use LoadTuningConfig to load actual values from a JSON file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to have a .json extension and to stay under the max file
// size. Fields omitted from the file retain their defaults, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. Panics if the file cannot be loaded; intended for test
// setup and binaries that have already validated config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.TicksPerSecond != nil && *c.TicksPerSecond <= 0 {
		return fmt.Errorf("ticks_per_second must be positive, got %d", *c.TicksPerSecond)
	}
	if c.LivenessTimeoutTicks != nil && *c.LivenessTimeoutTicks <= 0 {
		return fmt.Errorf("liveness_timeout_ticks must be positive, got %d", *c.LivenessTimeoutTicks)
	}
	if c.HistoryLookbackSeconds != nil && *c.HistoryLookbackSeconds <= 0 {
		return fmt.Errorf("history_lookback_seconds must be positive, got %f", *c.HistoryLookbackSeconds)
	}
	if c.MinAssocIoU != nil {
		if *c.MinAssocIoU < 0 || *c.MinAssocIoU >= 1 {
			return fmt.Errorf("min_assoc_iou must be in [0, 1), got %f", *c.MinAssocIoU)
		}
	}
	if c.NMSIoU != nil {
		if *c.NMSIoU <= 0 || *c.NMSIoU > 1 {
			return fmt.Errorf("nms_iou must be in (0, 1], got %f", *c.NMSIoU)
		}
	}
	if c.EdgeMarginFraction != nil {
		if *c.EdgeMarginFraction < 0 || *c.EdgeMarginFraction >= 0.5 {
			return fmt.Errorf("edge_margin_fraction must be in [0, 0.5), got %f", *c.EdgeMarginFraction)
		}
	}
	if c.CrowdThreshold != nil && *c.CrowdThreshold < 0 {
		return fmt.Errorf("crowd_threshold must be non-negative, got %d", *c.CrowdThreshold)
	}
	return nil
}

// GetTicksPerSecond returns the ticks_per_second value or the default.
func (c *TuningConfig) GetTicksPerSecond() int {
	if c.TicksPerSecond == nil {
		return 30
	}
	return *c.TicksPerSecond
}

// GetLivenessTimeoutTicks returns the liveness_timeout_ticks value or
// the default (90 ticks, 3 seconds at 30 ticks/sec).
func (c *TuningConfig) GetLivenessTimeoutTicks() int {
	if c.LivenessTimeoutTicks == nil {
		return 90
	}
	return *c.LivenessTimeoutTicks
}

// GetHistoryLookbackSeconds returns the history_lookback_seconds value
// or the default.
func (c *TuningConfig) GetHistoryLookbackSeconds() float64 {
	if c.HistoryLookbackSeconds == nil {
		return 5.0
	}
	return *c.HistoryLookbackSeconds
}

// GetCleanupIntervalTicks returns the cleanup_interval_ticks value or
// the default.
func (c *TuningConfig) GetCleanupIntervalTicks() int {
	if c.CleanupIntervalTicks == nil {
		return 30
	}
	return *c.CleanupIntervalTicks
}

// GetLoiterSeconds returns the loiter_seconds value or the default.
func (c *TuningConfig) GetLoiterSeconds() float64 {
	if c.LoiterSeconds == nil {
		return 30.0
	}
	return *c.LoiterSeconds
}

// GetStillnessDistancePx returns the stillness_distance_px value or the default.
func (c *TuningConfig) GetStillnessDistancePx() float64 {
	if c.StillnessDistancePx == nil {
		return 20.0
	}
	return *c.StillnessDistancePx
}

// GetStillnessLookbackSeconds returns the stillness_lookback_seconds value or the default.
func (c *TuningConfig) GetStillnessLookbackSeconds() float64 {
	if c.StillnessLookbackSeconds == nil {
		return 5.0
	}
	return *c.StillnessLookbackSeconds
}

// GetErraticDistancePx returns the erratic_distance_px value or the default.
func (c *TuningConfig) GetErraticDistancePx() float64 {
	if c.ErraticDistancePx == nil {
		return 100.0
	}
	return *c.ErraticDistancePx
}

// GetErraticLookbackSeconds returns the erratic_lookback_seconds value or the default.
func (c *TuningConfig) GetErraticLookbackSeconds() float64 {
	if c.ErraticLookbackSeconds == nil {
		return 2.0
	}
	return *c.ErraticLookbackSeconds
}

// GetCrowdThreshold returns the crowd_threshold value or the default.
func (c *TuningConfig) GetCrowdThreshold() int {
	if c.CrowdThreshold == nil {
		return 2
	}
	return *c.CrowdThreshold
}

// GetEdgeMarginFraction returns the edge_margin_fraction value or the default.
func (c *TuningConfig) GetEdgeMarginFraction() float64 {
	if c.EdgeMarginFraction == nil {
		return 0.05
	}
	return *c.EdgeMarginFraction
}

// GetLoiterBonus returns the loiter_bonus value or the default.
func (c *TuningConfig) GetLoiterBonus() int {
	if c.LoiterBonus == nil {
		return 1
	}
	return *c.LoiterBonus
}

// GetZoneBonus returns the zone_bonus value or the default.
func (c *TuningConfig) GetZoneBonus() int {
	if c.ZoneBonus == nil {
		return 2
	}
	return *c.ZoneBonus
}

// GetStillnessBonus returns the stillness_bonus value or the default.
func (c *TuningConfig) GetStillnessBonus() int {
	if c.StillnessBonus == nil {
		return 1
	}
	return *c.StillnessBonus
}

// GetErraticBonus returns the erratic_bonus value or the default.
func (c *TuningConfig) GetErraticBonus() int {
	if c.ErraticBonus == nil {
		return 1
	}
	return *c.ErraticBonus
}

// GetCrowdBonus returns the crowd_bonus value or the default.
func (c *TuningConfig) GetCrowdBonus() int {
	if c.CrowdBonus == nil {
		return 1
	}
	return *c.CrowdBonus
}

// GetWeaponBonus returns the weapon_bonus value or the default.
func (c *TuningConfig) GetWeaponBonus() int {
	if c.WeaponBonus == nil {
		return 5
	}
	return *c.WeaponBonus
}

// GetItemBonus returns the item_bonus value or the default.
func (c *TuningConfig) GetItemBonus() int {
	if c.ItemBonus == nil {
		return 2
	}
	return *c.ItemBonus
}

// GetEdgeBonus returns the edge_bonus value or the default.
func (c *TuningConfig) GetEdgeBonus() int {
	if c.EdgeBonus == nil {
		return 1
	}
	return *c.EdgeBonus
}

// GetMinAssocIoU returns the min_assoc_iou value or the default.
// The default of 0 means any positive overlap associates a detection
// with a person; raise it for stricter matching in dense scenes.
func (c *TuningConfig) GetMinAssocIoU() float64 {
	if c.MinAssocIoU == nil {
		return 0.0
	}
	return *c.MinAssocIoU
}

// GetWeaponHoldTicks returns the weapon_hold_ticks value or the default
// (150 ticks, 5 seconds at 30 ticks/sec).
func (c *TuningConfig) GetWeaponHoldTicks() int {
	if c.WeaponHoldTicks == nil {
		return 150
	}
	return *c.WeaponHoldTicks
}

// GetNMSIoU returns the nms_iou value or the default.
func (c *TuningConfig) GetNMSIoU() float64 {
	if c.NMSIoU == nil {
		return 0.3
	}
	return *c.NMSIoU
}

// GetAlertThrottleTicks returns the alert_throttle_ticks value or the default.
func (c *TuningConfig) GetAlertThrottleTicks() int {
	if c.AlertThrottleTicks == nil {
		return 30
	}
	return *c.AlertThrottleTicks
}
