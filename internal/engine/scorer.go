package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/vigil-data/vigil.watch/internal/geometry"
)

// Scorer computes per-identity behaviour scores. A score is a snapshot
// of current risk, recomputed from scratch every tick — it is not an
// accumulator across ticks, so identical inputs always yield identical
// output regardless of prior scoring calls.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{config: cfg}
}

// CalculateScores evaluates the fixed rule set against every identity
// in the snapshot and returns one ScoreRecord per identity. Rules fire
// in a fixed order; contributions are additive, so the order affects
// only the Factors list, never the total.
//
// weapons and items are the object detections live this tick; an empty
// slice means "none supplied", which scores the same as none present.
func (s *Scorer) CalculateScores(identities map[int]*IdentityRecord, weapons, items []ObjectDetection, frame FrameShape, tick int) map[int]*ScoreRecord {
	// Deterministic iteration order: association walks identities in
	// ascending track ID order so IoU ties always resolve the same way.
	ids := make([]int, 0, len(identities))
	for id := range identities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	boxes := make([]geometry.Rect, len(ids))
	for i, id := range ids {
		boxes[i] = identities[id].LastBox
	}

	// Each weapon contributes to at most one person per tick; a person
	// may accumulate several distinct weapons.
	weaponFactors := make(map[int][]string)
	for _, w := range weapons {
		if idx := geometry.Associate(w.Box, boxes, s.config.MinAssocIoU); idx >= 0 {
			id := ids[idx]
			weaponFactors[id] = append(weaponFactors[id], fmt.Sprintf("Weapon: %s", w.Category))
		}
	}

	itemFactors := make(map[int][]string)
	for _, it := range items {
		if !suspiciousItemCategory(it.Category) {
			continue
		}
		if idx := geometry.Associate(it.Box, boxes, s.config.MinAssocIoU); idx >= 0 {
			id := ids[idx]
			itemFactors[id] = append(itemFactors[id], fmt.Sprintf("Suspicious item: %s", it.Category))
		}
	}

	crowded := len(identities) > s.config.CrowdThreshold

	scores := make(map[int]*ScoreRecord, len(identities))
	for _, id := range ids {
		rec := identities[id]
		score := 0
		var factors []string

		stay := float64(tick-rec.FirstSeenTick) / float64(s.config.TicksPerSecond)

		// Rule 1: loitering
		if stay > s.config.LoiterSeconds {
			score += s.config.LoiterBonus
			factors = append(factors, fmt.Sprintf("Loitering (%.1fs)", stay))
		}

		// Rule 2: restricted zone
		if s.config.RestrictedZone != nil && geometry.ContainsCenter(*s.config.RestrictedZone, rec.LastBox) {
			score += s.config.ZoneBonus
			factors = append(factors, "Restricted zone")
		}

		// Rules 3 and 4: movement against lookback samples. An identity
		// younger than a lookback window skips that rule, it is not
		// penalised.
		cx, cy := geometry.Center(rec.LastBox)
		if past, ok := sampleAtOrBefore(rec.History, tick-s.config.lookbackTicks(s.config.StillnessLookbackSeconds)); ok {
			if math.Hypot(cx-past.X, cy-past.Y) < s.config.StillnessDistancePx {
				score += s.config.StillnessBonus
				factors = append(factors, "Suspicious stillness")
			}
		}
		if past, ok := sampleAtOrBefore(rec.History, tick-s.config.lookbackTicks(s.config.ErraticLookbackSeconds)); ok {
			if math.Hypot(cx-past.X, cy-past.Y) > s.config.ErraticDistancePx {
				score += s.config.ErraticBonus
				factors = append(factors, "Erratic movement")
			}
		}

		// Rule 5: crowd
		if crowded {
			score += s.config.CrowdBonus
			factors = append(factors, fmt.Sprintf("Multiple people (%d)", len(identities)))
		}

		// Rule 6: weapons
		if wf := weaponFactors[id]; len(wf) > 0 {
			score += s.config.WeaponBonus * len(wf)
			factors = append(factors, wf...)
		}

		// Rule 7: suspicious items
		if itf := itemFactors[id]; len(itf) > 0 {
			score += s.config.ItemBonus * len(itf)
			factors = append(factors, itf...)
		}

		// Rule 8: frame edge
		if frame.Width > 0 && frame.Height > 0 &&
			geometry.TouchesEdge(rec.LastBox, frame.Width, frame.Height, s.config.EdgeMarginFraction) {
			score += s.config.EdgeBonus
			factors = append(factors, "At frame edge")
		}

		scores[id] = &ScoreRecord{
			TrackID:      id,
			Score:        score,
			Level:        ClassifyScore(score),
			StayDuration: stay,
			Factors:      factors,
		}
	}

	return scores
}

// sampleAtOrBefore returns the newest history sample whose tick is at
// or before targetTick, or false when the history does not reach back
// that far.
func sampleAtOrBefore(history []PositionSample, targetTick int) (PositionSample, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Tick <= targetTick {
			return history[i], true
		}
	}
	return PositionSample{}, false
}

// suspiciousItemCategory reports whether an object category counts as
// a suspicious carried item.
func suspiciousItemCategory(category string) bool {
	return category == CategoryBackpack || category == CategorySuitcase
}
