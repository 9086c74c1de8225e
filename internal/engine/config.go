package engine

import (
	"github.com/vigil-data/vigil.watch/internal/config"
	"github.com/vigil-data/vigil.watch/internal/geometry"
)

// Config holds the behaviour engine parameters for one session. The
// restricted zone and crowd threshold are fixed per session; construct
// a fresh engine to change them.
type Config struct {
	TicksPerSecond int // Frame rate the tick counter corresponds to

	// Identity memory
	LivenessTimeoutTicks   int     // Ticks without observation before an identity is purged
	HistoryLookbackSeconds float64 // Position history retention window
	CleanupIntervalTicks   int     // How often the pipeline runs memory cleanup

	// Scoring thresholds
	LoiterSeconds            float64 // Stay duration beyond which the loitering rule fires
	StillnessDistancePx      float64 // Max displacement treated as suspicious stillness
	StillnessLookbackSeconds float64 // Lookback for the stillness rule
	ErraticDistancePx        float64 // Min displacement treated as erratic movement
	ErraticLookbackSeconds   float64 // Lookback for the erratic rule
	CrowdThreshold           int     // Live identity count above which the crowd rule fires
	EdgeMarginFraction       float64 // Frame border margin for the edge rule

	// Scoring weights
	LoiterBonus    int
	ZoneBonus      int
	StillnessBonus int
	ErraticBonus   int
	CrowdBonus     int
	WeaponBonus    int
	ItemBonus      int
	EdgeBonus      int

	// Association
	MinAssocIoU float64 // Minimum IoU for detection-to-person association

	// Weapon memory
	WeaponHoldTicks int     // How long a weapon batch stays live without refresh
	NMSIoU          float64 // Same-category suppression threshold for dedup

	// Alert persistence
	AlertThrottleTicks int // Min tick gap between persisted non-NORMAL alerts per identity

	// Session configuration
	RestrictedZone *geometry.Rect // Optional; nil disables the zone rule
}

// DefaultConfig returns engine configuration loaded from the canonical
// tuning defaults file (config/tuning.defaults.json). Panics if the
// file cannot be found — intended for tests and binaries that have
// already validated config availability.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds an engine Config from a loaded TuningConfig.
// Use this in production code where the TuningConfig is already loaded.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		TicksPerSecond:           cfg.GetTicksPerSecond(),
		LivenessTimeoutTicks:     cfg.GetLivenessTimeoutTicks(),
		HistoryLookbackSeconds:   cfg.GetHistoryLookbackSeconds(),
		CleanupIntervalTicks:     cfg.GetCleanupIntervalTicks(),
		LoiterSeconds:            cfg.GetLoiterSeconds(),
		StillnessDistancePx:      cfg.GetStillnessDistancePx(),
		StillnessLookbackSeconds: cfg.GetStillnessLookbackSeconds(),
		ErraticDistancePx:        cfg.GetErraticDistancePx(),
		ErraticLookbackSeconds:   cfg.GetErraticLookbackSeconds(),
		CrowdThreshold:           cfg.GetCrowdThreshold(),
		EdgeMarginFraction:       cfg.GetEdgeMarginFraction(),
		LoiterBonus:              cfg.GetLoiterBonus(),
		ZoneBonus:                cfg.GetZoneBonus(),
		StillnessBonus:           cfg.GetStillnessBonus(),
		ErraticBonus:             cfg.GetErraticBonus(),
		CrowdBonus:               cfg.GetCrowdBonus(),
		WeaponBonus:              cfg.GetWeaponBonus(),
		ItemBonus:                cfg.GetItemBonus(),
		EdgeBonus:                cfg.GetEdgeBonus(),
		MinAssocIoU:              cfg.GetMinAssocIoU(),
		WeaponHoldTicks:          cfg.GetWeaponHoldTicks(),
		NMSIoU:                   cfg.GetNMSIoU(),
		AlertThrottleTicks:       cfg.GetAlertThrottleTicks(),
	}
}

// lookbackTicks converts a lookback window in seconds to ticks.
func (c Config) lookbackTicks(seconds float64) int {
	return int(seconds * float64(c.TicksPerSecond))
}
