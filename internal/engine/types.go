// Package engine implements the stateful tracking-and-scoring core of
// the surveillance pipeline: per-identity memory, behaviour scoring,
// alert classification and threat-capture deduplication. The engine is
// a deterministic rule-based aggregator over typed detection records;
// detector models and transport live outside this package.
//
// Time is measured in ticks, one tick per consumed frame. Callers must
// supply ticks in strictly increasing order; the engine does not
// reorder or tolerate out-of-order ticks.
package engine

import "github.com/vigil-data/vigil.watch/internal/geometry"

// AlertLevel classifies a behaviour score into a discrete alert band.
type AlertLevel string

const (
	LevelNormal     AlertLevel = "NORMAL"     // score 0-2
	LevelSuspicious AlertLevel = "SUSPICIOUS" // score 3-4
	LevelThreat     AlertLevel = "THREAT"     // score >= 5
)

// Known detection categories for weapon and object detections.
const (
	CategoryGun      = "gun"
	CategoryKnife    = "knife"
	CategoryBat      = "bat"
	CategoryBackpack = "backpack"
	CategorySuitcase = "suitcase"
)

// PersonDetection is one tracked-person observation for a tick,
// produced by the external detector+tracker. TrackID continuity across
// ticks is an upstream responsibility.
type PersonDetection struct {
	TrackID    int           `json:"track_id"`
	Box        geometry.Rect `json:"bbox"`
	Confidence float64       `json:"confidence"`
}

// ObjectDetection is one weapon or suspicious-item observation. The
// detector supplies these at its own cadence; a tick without object
// detections means "none supplied", not "none present".
type ObjectDetection struct {
	Box        geometry.Rect `json:"bbox"`
	Category   string        `json:"category"`
	Confidence float64       `json:"confidence"`
}

// PositionSample is one entry in an identity's position history.
type PositionSample struct {
	Tick int     `json:"tick"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// IdentityRecord holds the engine-owned state for one tracked identity.
// FirstSeenTick is immutable after creation; the remaining fields are
// updated on every tick the identity is observed.
type IdentityRecord struct {
	TrackID       int              `json:"track_id"`
	FirstSeenTick int              `json:"first_seen_tick"`
	LastSeenTick  int              `json:"last_seen_tick"`
	LastBox       geometry.Rect    `json:"bbox"`
	History       []PositionSample `json:"history"`
}

// clone returns a deep copy safe to hand outside the engine.
func (r *IdentityRecord) clone() *IdentityRecord {
	copied := *r
	if len(r.History) > 0 {
		copied.History = make([]PositionSample, len(r.History))
		copy(copied.History, r.History)
	}
	return &copied
}

// ScoreRecord is the per-tick scoring snapshot for one identity. Score
// is recomputed from scratch each tick; Factors preserves rule firing
// order and is empty when the score is zero.
type ScoreRecord struct {
	TrackID      int        `json:"track_id"`
	Score        int        `json:"score"`
	Level        AlertLevel `json:"alert_level"`
	StayDuration float64    `json:"stay_duration"`
	Factors      []string   `json:"factors"`
}

// FrameShape carries the frame dimensions used by the edge-proximity
// rule. Dimensions are in pixels.
type FrameShape struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClassifyScore maps a behaviour score to its alert level using
// inclusive lower bounds. Scores are never negative.
func ClassifyScore(score int) AlertLevel {
	switch {
	case score >= 5:
		return LevelThreat
	case score >= 3:
		return LevelSuspicious
	default:
		return LevelNormal
	}
}
