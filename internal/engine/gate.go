package engine

// CaptureGate deduplicates threat-screenshot side effects. It emits
// exactly once per identity per continuous THREAT episode: the first
// tick an identity reaches THREAT emits, subsequent THREAT ticks are
// suppressed, and an identity that drops below THREAT and later
// re-enters it starts a new episode and emits again.
type CaptureGate struct {
	captured map[int]bool // identities captured during their current THREAT episode
}

// NewCaptureGate creates an empty gate.
func NewCaptureGate() *CaptureGate {
	return &CaptureGate{captured: make(map[int]bool)}
}

// MaybeEmit reports whether a screenshot should be captured for the
// identity at its current alert level. Ticks below THREAT close the
// identity's current episode.
func (g *CaptureGate) MaybeEmit(trackID int, level AlertLevel) bool {
	if level != LevelThreat {
		delete(g.captured, trackID)
		return false
	}
	if g.captured[trackID] {
		return false
	}
	g.captured[trackID] = true
	return true
}

// Forget drops per-identity gate state. Called when identities are
// removed from memory so the gate cannot grow without bound.
func (g *CaptureGate) Forget(trackIDs ...int) {
	for _, id := range trackIDs {
		delete(g.captured, id)
	}
}

// Len returns the number of identities with an open THREAT episode.
func (g *CaptureGate) Len() int {
	return len(g.captured)
}
