package engine

import (
	"fmt"
	"sync"

	"github.com/vigil-data/vigil.watch/internal/geometry"
	"github.com/vigil-data/vigil.watch/internal/monitoring"
)

// IdentityMemory is the keyed store of per-identity tracking state.
// Exactly one IdentityRecord exists per live track ID: records are
// created on first observation and destroyed by Cleanup once unseen
// for longer than the liveness timeout.
//
// All getters return deep copies; callers never hold references into
// engine-owned mutable state.
type IdentityMemory struct {
	records map[int]*IdentityRecord
	config  Config

	mu sync.RWMutex
}

// NewIdentityMemory creates an empty identity memory with the given
// configuration.
func NewIdentityMemory(cfg Config) *IdentityMemory {
	return &IdentityMemory{
		records: make(map[int]*IdentityRecord),
		config:  cfg,
	}
}

// validateDetection reports why a person detection is malformed, or
// nil for a well-formed one. Malformed detections are skipped at the
// update boundary so one bad record cannot abort a live tick.
func validateDetection(d PersonDetection) error {
	if d.TrackID <= 0 {
		return fmt.Errorf("non-positive track_id %d", d.TrackID)
	}
	if !d.Box.Valid() {
		return fmt.Errorf("degenerate bbox (%.1f,%.1f,%.1f,%.1f)", d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %f outside [0,1]", d.Confidence)
	}
	return nil
}

// Update folds one tick's person detections into memory. New track IDs
// create records with FirstSeenTick set to the current tick; known IDs
// update the last bbox, last-seen tick, and position history.
// Malformed detections and duplicate track IDs within the batch are
// skipped individually; the rest of the batch proceeds.
func (m *IdentityMemory) Update(detections []PersonDetection, tick int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int]bool, len(detections))
	for _, det := range detections {
		if err := validateDetection(det); err != nil {
			monitoring.Logf("identity memory: skipping detection: %v", err)
			continue
		}
		if seen[det.TrackID] {
			monitoring.Logf("identity memory: skipping duplicate track_id %d in batch at tick %d", det.TrackID, tick)
			continue
		}
		seen[det.TrackID] = true

		cx, cy := geometry.Center(det.Box)
		rec, ok := m.records[det.TrackID]
		if !ok {
			rec = &IdentityRecord{
				TrackID:       det.TrackID,
				FirstSeenTick: tick,
			}
			m.records[det.TrackID] = rec
		}
		rec.LastBox = det.Box
		rec.LastSeenTick = tick
		rec.History = append(rec.History, PositionSample{Tick: tick, X: cx, Y: cy})
		m.pruneHistory(rec, tick)
	}
}

// pruneHistory discards samples older than the lookback window while
// keeping one margin sample at or before the window boundary, so
// "position N seconds ago" queries stay answerable right at the edge.
func (m *IdentityMemory) pruneHistory(rec *IdentityRecord, tick int) {
	cutoff := tick - m.config.lookbackTicks(m.config.HistoryLookbackSeconds)
	// Find the newest sample at or before the cutoff; everything older
	// than that one is dropped.
	keepFrom := 0
	for i, s := range rec.History {
		if s.Tick <= cutoff {
			keepFrom = i
		} else {
			break
		}
	}
	if keepFrom > 0 {
		rec.History = append(rec.History[:0], rec.History[keepFrom:]...)
	}
}

// Get returns a copy of the record for the given track ID, or false
// when the identity is not in memory.
func (m *IdentityMemory) Get(trackID int) (*IdentityRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[trackID]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// GetAll returns a snapshot of every live record keyed by track ID.
// The snapshot is a deep copy; mutating it does not affect memory.
func (m *IdentityMemory) GetAll() map[int]*IdentityRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int]*IdentityRecord, len(m.records))
	for id, rec := range m.records {
		out[id] = rec.clone()
	}
	return out
}

// Count returns the number of live identities.
func (m *IdentityMemory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Cleanup removes every record unseen for longer than the liveness
// timeout. Safe to call at any tick; records not subject to the
// condition are untouched, and the call is a no-op on empty memory.
// Returns the track IDs that were removed so dependent state (the
// alert gate) can drop them too.
func (m *IdentityMemory) Cleanup(tick int) []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []int
	for id, rec := range m.records {
		if tick-rec.LastSeenTick > m.config.LivenessTimeoutTicks {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(m.records, id)
	}
	return removed
}
