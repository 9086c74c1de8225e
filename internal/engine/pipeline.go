package engine

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// TickInput carries one tick's detections from the external detector
// boundary into the engine.
type TickInput struct {
	Tick    int               `json:"tick"`
	Persons []PersonDetection `json:"persons"`
	Weapons []ObjectDetection `json:"weapons,omitempty"`
	Items   []ObjectDetection `json:"items,omitempty"`
	Frame   FrameShape        `json:"frame"`
}

// TickResult is the engine's per-tick output: a score snapshot, the
// identities whose THREAT transition should trigger a screenshot, and
// running session statistics. The result is pure data, safe to hand to
// transport or rendering on other goroutines.
type TickResult struct {
	Tick           int                  `json:"tick"`
	Scores         map[int]*ScoreRecord `json:"scores"`
	Captures       []int                `json:"captures,omitempty"`
	LiveIdentities int                  `json:"live_identities"`
	Stats          SessionStats         `json:"stats"`
}

// SessionStats holds session-wide running counters. Peaks are
// persistent maxima — they never decrease within a session.
type SessionStats struct {
	TicksProcessed int `json:"ticks_processed"`
	PeakPersons    int `json:"peak_persons"`
	PeakWeapons    int `json:"peak_weapons"`
	PeakThreats    int `json:"peak_threats"`
	CapturesTotal  int `json:"captures_total"`
}

// Pipeline composes identity memory, the scorer, weapon memory, and
// the capture gate into the per-tick processing sequence:
// update → cleanup → score → gate. Processing is synchronous and
// single-threaded; the mutex only serialises callers, it does not add
// internal parallelism. Ticks must be supplied in strictly increasing
// order.
type Pipeline struct {
	SessionID string

	config  Config
	memory  *IdentityMemory
	scorer  *Scorer
	gate    *CaptureGate
	weapons *WeaponMemory

	stats      SessionStats
	lastTick   int
	lastScores map[int]*ScoreRecord

	mu sync.Mutex
}

// NewPipeline creates a pipeline for one session. Session-fixed
// configuration (restricted zone, crowd threshold) is part of cfg;
// construct a new pipeline to start a new session.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		SessionID: uuid.NewString(),
		config:    cfg,
		memory:    NewIdentityMemory(cfg),
		scorer:    NewScorer(cfg),
		gate:      NewCaptureGate(),
		weapons:   NewWeaponMemory(cfg),
	}
}

// ProcessTick runs one full tick through the engine and returns the
// resulting snapshot.
func (p *Pipeline) ProcessTick(in TickInput) TickResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.memory.Update(in.Persons, in.Tick)

	if p.config.CleanupIntervalTicks > 0 && in.Tick%p.config.CleanupIntervalTicks == 0 {
		removed := p.memory.Cleanup(in.Tick)
		p.gate.Forget(removed...)
	}

	p.weapons.Observe(in.Weapons, in.Tick)
	liveWeapons := p.weapons.Current(in.Tick)

	identities := p.memory.GetAll()
	scores := p.scorer.CalculateScores(identities, liveWeapons, in.Items, in.Frame, in.Tick)

	// Gate in ascending ID order so capture ordering is deterministic.
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var captures []int
	threats := 0
	for _, id := range ids {
		rec := scores[id]
		if rec.Level == LevelThreat {
			threats++
		}
		if p.gate.MaybeEmit(id, rec.Level) {
			captures = append(captures, id)
		}
	}

	p.stats.TicksProcessed++
	p.stats.CapturesTotal += len(captures)
	if n := len(identities); n > p.stats.PeakPersons {
		p.stats.PeakPersons = n
	}
	if n := len(liveWeapons); n > p.stats.PeakWeapons {
		p.stats.PeakWeapons = n
	}
	if threats > p.stats.PeakThreats {
		p.stats.PeakThreats = threats
	}

	p.lastTick = in.Tick
	p.lastScores = scores

	return TickResult{
		Tick:           in.Tick,
		Scores:         cloneScores(scores),
		Captures:       captures,
		LiveIdentities: len(identities),
		Stats:          p.stats,
	}
}

// LatestScores returns a copy of the most recent tick's score map and
// the tick it was computed at.
func (p *Pipeline) LatestScores() (map[int]*ScoreRecord, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneScores(p.lastScores), p.lastTick
}

// Identities returns a snapshot of the current identity memory.
func (p *Pipeline) Identities() map[int]*IdentityRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memory.GetAll()
}

// Stats returns the session statistics so far.
func (p *Pipeline) Stats() SessionStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Config returns the session configuration. The returned value is a
// copy; session configuration cannot change mid-session.
func (p *Pipeline) Config() Config {
	return p.config
}

func cloneScores(scores map[int]*ScoreRecord) map[int]*ScoreRecord {
	out := make(map[int]*ScoreRecord, len(scores))
	for id, rec := range scores {
		copied := *rec
		if len(rec.Factors) > 0 {
			copied.Factors = make([]string, len(rec.Factors))
			copy(copied.Factors, rec.Factors)
		}
		out[id] = &copied
	}
	return out
}
