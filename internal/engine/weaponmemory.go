package engine

import (
	"sort"

	"github.com/vigil-data/vigil.watch/internal/geometry"
)

// WeaponMemory bridges the cadence gap between the weapon detector and
// the per-tick scorer. The detector reports every few ticks; the last
// non-empty batch is held live for a bounded window so scores do not
// flap between detector invocations. A new non-empty batch replaces
// the held one outright rather than accumulating.
type WeaponMemory struct {
	held     []ObjectDetection
	heldTick int
	config   Config
}

// NewWeaponMemory creates an empty weapon memory.
func NewWeaponMemory(cfg Config) *WeaponMemory {
	return &WeaponMemory{config: cfg}
}

// Observe records this tick's weapon detections. A non-empty batch
// replaces the held set; an empty batch leaves the held set aging.
func (w *WeaponMemory) Observe(detections []ObjectDetection, tick int) {
	if len(detections) == 0 {
		return
	}
	w.held = make([]ObjectDetection, len(detections))
	copy(w.held, detections)
	w.heldTick = tick
}

// Current returns the deduplicated live weapon set for the given tick.
// Held detections older than the hold window are dropped.
func (w *WeaponMemory) Current(tick int) []ObjectDetection {
	if w.held != nil && tick-w.heldTick >= w.config.WeaponHoldTicks {
		w.held = nil
	}
	if len(w.held) == 0 {
		return nil
	}
	return DedupeDetections(w.held, w.config.NMSIoU)
}

// DedupeDetections suppresses overlapping same-category detections,
// keeping the highest-confidence one. A detection is a duplicate when
// it overlaps a kept detection of the same category above iouThreshold.
func DedupeDetections(detections []ObjectDetection, iouThreshold float64) []ObjectDetection {
	if len(detections) == 0 {
		return nil
	}

	sorted := make([]ObjectDetection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	keep := make([]ObjectDetection, 0, len(sorted))
	for _, det := range sorted {
		duplicate := false
		for _, kept := range keep {
			if det.Category == kept.Category && geometry.IoU(det.Box, kept.Box) > iouThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			keep = append(keep, det)
		}
	}
	return keep
}
