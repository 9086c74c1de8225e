package engine

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-data/vigil.watch/internal/geometry"
)

func TestClassifyScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  AlertLevel
	}{
		{0, LevelNormal},
		{1, LevelNormal},
		{2, LevelNormal},
		{3, LevelSuspicious},
		{4, LevelSuspicious},
		{5, LevelThreat},
		{6, LevelThreat},
		{100, LevelThreat},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyScore(tt.score), "score %d", tt.score)
	}
}

// identity builds a minimal record seen continuously since firstTick,
// with history covering every tick up to lastTick at the box center.
func identity(id, firstTick, lastTick int, b geometry.Rect) *IdentityRecord {
	cx, cy := geometry.Center(b)
	rec := &IdentityRecord{
		TrackID:       id,
		FirstSeenTick: firstTick,
		LastSeenTick:  lastTick,
		LastBox:       b,
	}
	for tick := firstTick; tick <= lastTick; tick++ {
		rec.History = append(rec.History, PositionSample{Tick: tick, X: cx, Y: cy})
	}
	return rec
}

func TestScorer_Loitering(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0 // isolate the loitering rule
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}
	b := box(400, 300, 500, 500)

	t.Run("fires past the threshold", func(t *testing.T) {
		t.Parallel()
		// 301 ticks at 10 tps = 30.1s stay, past the 30s threshold.
		ids := map[int]*IdentityRecord{1: identity(1, 100, 401, b)}
		scores := s.CalculateScores(ids, nil, nil, frame, 401)

		require.Contains(t, scores, 1)
		assert.Equal(t, 1, scores[1].Score)
		assert.Equal(t, 30.1, scores[1].StayDuration)
		assert.Contains(t, scores[1].Factors, "Loitering (30.1s)")
	})

	t.Run("silent at exactly the threshold", func(t *testing.T) {
		t.Parallel()
		// 300 ticks = 30.0s, not strictly greater than 30s.
		ids := map[int]*IdentityRecord{1: identity(1, 100, 400, b)}
		scores := s.CalculateScores(ids, nil, nil, frame, 400)

		assert.NotContains(t, scores[1].Factors, fmt.Sprintf("Loitering (%.1fs)", 30.0))
		for _, f := range scores[1].Factors {
			assert.NotContains(t, f, "Loitering")
		}
	})
}

func TestScorer_RestrictedZone(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0
	zone := box(100, 100, 300, 300)
	cfg.RestrictedZone = &zone
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}

	t.Run("center inside scores", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(150, 150, 250, 250))}
		scores := s.CalculateScores(ids, nil, nil, frame, 101)

		assert.Equal(t, 2, scores[1].Score)
		assert.Contains(t, scores[1].Factors, "Restricted zone")
	})

	t.Run("center on zone edge scores", func(t *testing.T) {
		t.Parallel()
		// Box center (100, 200) sits exactly on the zone's left edge.
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(80, 180, 120, 220))}
		scores := s.CalculateScores(ids, nil, nil, frame, 101)

		assert.Contains(t, scores[1].Factors, "Restricted zone")
	})

	t.Run("center outside is silent", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(500, 500, 600, 600))}
		scores := s.CalculateScores(ids, nil, nil, frame, 101)

		assert.Equal(t, 0, scores[1].Score)
		assert.NotContains(t, scores[1].Factors, "Restricted zone")
	})

	t.Run("nil zone disables the rule", func(t *testing.T) {
		t.Parallel()
		noZone := testConfig()
		noZone.StillnessBonus = 0
		sc := NewScorer(noZone)
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(150, 150, 250, 250))}
		scores := sc.CalculateScores(ids, nil, nil, frame, 101)

		assert.Equal(t, 0, scores[1].Score)
	})
}

func TestScorer_Stillness(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}

	t.Run("fires when displacement stays under the threshold", func(t *testing.T) {
		t.Parallel()
		// 5s lookback at 10 tps needs a sample at or before tick 50.
		ids := map[int]*IdentityRecord{1: identity(1, 1, 100, box(400, 300, 500, 500))}
		scores := s.CalculateScores(ids, nil, nil, frame, 100)

		assert.Contains(t, scores[1].Factors, "Suspicious stillness")
	})

	t.Run("silent when the identity moved", func(t *testing.T) {
		t.Parallel()
		rec := identity(1, 1, 100, box(400, 300, 500, 500))
		// Rewrite older samples far away so displacement exceeds 20px.
		for i := range rec.History {
			if rec.History[i].Tick <= 50 {
				rec.History[i].X = 100
				rec.History[i].Y = 100
			}
		}
		scores := s.CalculateScores(map[int]*IdentityRecord{1: rec}, nil, nil, frame, 100)

		for _, f := range scores[1].Factors {
			assert.NotEqual(t, "Suspicious stillness", f)
		}
	})

	t.Run("young identity skips the rule", func(t *testing.T) {
		t.Parallel()
		// Seen for 2s only; no sample reaches back 5s.
		ids := map[int]*IdentityRecord{1: identity(1, 80, 100, box(400, 300, 500, 500))}
		scores := s.CalculateScores(ids, nil, nil, frame, 100)

		assert.Equal(t, 0, scores[1].Score)
	})
}

func TestScorer_ErraticMovement(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}

	// 2s lookback at 10 tps compares against the sample at tick 80.
	rec := identity(1, 1, 100, box(400, 300, 500, 500))
	for i := range rec.History {
		if rec.History[i].Tick <= 80 {
			rec.History[i].X = 100
			rec.History[i].Y = 100
		}
	}
	scores := s.CalculateScores(map[int]*IdentityRecord{1: rec}, nil, nil, frame, 100)

	assert.Equal(t, 1, scores[1].Score)
	assert.Contains(t, scores[1].Factors, "Erratic movement")
}

func TestScorer_Crowd(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}

	t.Run("fires above the threshold", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{
			1: identity(1, 100, 101, box(100, 300, 200, 500)),
			2: identity(2, 100, 101, box(300, 300, 400, 500)),
			3: identity(3, 100, 101, box(500, 300, 600, 500)),
		}
		scores := s.CalculateScores(ids, nil, nil, frame, 101)

		for id := 1; id <= 3; id++ {
			assert.Equal(t, 1, scores[id].Score, "track %d", id)
			assert.Contains(t, scores[id].Factors, "Multiple people (3)", "track %d", id)
		}
	})

	t.Run("silent at the threshold", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{
			1: identity(1, 100, 101, box(100, 300, 200, 500)),
			2: identity(2, 100, 101, box(300, 300, 400, 500)),
		}
		scores := s.CalculateScores(ids, nil, nil, frame, 101)

		assert.Equal(t, 0, scores[1].Score)
		assert.Equal(t, 0, scores[2].Score)
	})
}

func TestScorer_Weapons(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}

	t.Run("associated weapon escalates to threat", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(400, 300, 500, 500))}
		weapons := []ObjectDetection{
			{Box: box(420, 350, 470, 420), Category: CategoryGun, Confidence: 0.8},
		}
		scores := s.CalculateScores(ids, weapons, nil, frame, 101)

		assert.Equal(t, 5, scores[1].Score)
		assert.Equal(t, LevelThreat, scores[1].Level)
		assert.Contains(t, scores[1].Factors, "Weapon: gun")
	})

	t.Run("weapon attaches to best overlap only", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{
			1: identity(1, 100, 101, box(400, 300, 500, 500)),
			2: identity(2, 100, 101, box(450, 300, 550, 500)),
		}
		// Fully inside track 2's box, partially inside track 1's.
		weapons := []ObjectDetection{
			{Box: box(490, 350, 540, 420), Category: CategoryKnife, Confidence: 0.8},
		}
		scores := s.CalculateScores(ids, weapons, nil, frame, 101)

		assert.NotContains(t, scores[1].Factors, "Weapon: knife")
		assert.Contains(t, scores[2].Factors, "Weapon: knife")
	})

	t.Run("multiple distinct weapons stack", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(400, 300, 500, 500))}
		weapons := []ObjectDetection{
			{Box: box(410, 310, 450, 360), Category: CategoryGun, Confidence: 0.8},
			{Box: box(460, 420, 495, 480), Category: CategoryKnife, Confidence: 0.7},
		}
		scores := s.CalculateScores(ids, weapons, nil, frame, 101)

		assert.Equal(t, 10, scores[1].Score)
		assert.Contains(t, scores[1].Factors, "Weapon: gun")
		assert.Contains(t, scores[1].Factors, "Weapon: knife")
	})

	t.Run("unassociated weapon scores nobody", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(400, 300, 500, 500))}
		weapons := []ObjectDetection{
			{Box: box(800, 50, 850, 120), Category: CategoryGun, Confidence: 0.8},
		}
		scores := s.CalculateScores(ids, weapons, nil, frame, 101)

		assert.Equal(t, 0, scores[1].Score)
	})
}

func TestScorer_SuspiciousItems(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}
	ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(400, 300, 500, 500))}

	t.Run("backpack scores", func(t *testing.T) {
		t.Parallel()
		items := []ObjectDetection{
			{Box: box(420, 350, 470, 420), Category: CategoryBackpack, Confidence: 0.8},
		}
		scores := s.CalculateScores(ids, nil, items, frame, 101)

		assert.Equal(t, 2, scores[1].Score)
		assert.Contains(t, scores[1].Factors, "Suspicious item: backpack")
	})

	t.Run("non-suspicious category ignored", func(t *testing.T) {
		t.Parallel()
		items := []ObjectDetection{
			{Box: box(420, 350, 470, 420), Category: "umbrella", Confidence: 0.8},
		}
		scores := s.CalculateScores(ids, nil, items, frame, 101)

		assert.Equal(t, 0, scores[1].Score)
	})
}

func TestScorer_FrameEdge(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StillnessBonus = 0
	s := NewScorer(cfg)

	t.Run("box at the border scores", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(10, 300, 110, 500))}
		scores := s.CalculateScores(ids, nil, nil, FrameShape{Width: 1000, Height: 800}, 101)

		assert.Equal(t, 1, scores[1].Score)
		assert.Contains(t, scores[1].Factors, "At frame edge")
	})

	t.Run("unknown frame shape disables the rule", func(t *testing.T) {
		t.Parallel()
		ids := map[int]*IdentityRecord{1: identity(1, 100, 101, box(10, 300, 110, 500))}
		scores := s.CalculateScores(ids, nil, nil, FrameShape{}, 101)

		assert.Equal(t, 0, scores[1].Score)
	})
}

func TestScorer_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	zone := box(100, 100, 300, 300)
	cfg.RestrictedZone = &zone
	s := NewScorer(cfg)
	frame := FrameShape{Width: 1000, Height: 800}

	ids := map[int]*IdentityRecord{
		3: identity(3, 1, 400, box(150, 150, 250, 250)),
		1: identity(1, 50, 400, box(400, 300, 500, 500)),
		2: identity(2, 200, 400, box(20, 300, 120, 500)),
	}
	weapons := []ObjectDetection{
		{Box: box(420, 350, 470, 420), Category: CategoryGun, Confidence: 0.8},
	}
	items := []ObjectDetection{
		{Box: box(160, 160, 240, 240), Category: CategorySuitcase, Confidence: 0.6},
	}

	first := s.CalculateScores(ids, weapons, items, frame, 400)
	for i := 0; i < 10; i++ {
		again := s.CalculateScores(ids, weapons, items, frame, 400)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("scoring not deterministic (-first +again):\n%s", diff)
		}
	}
}
